// Package rules advances a game.GameState by one turn under standard
// Battlesnake rules. The arena uses it to play the decision engine against
// itself; the engine never calls it.
package rules

import (
	"math/rand"

	"github.com/brensch/greedysnek/game"
)

// MaxHealth is what a snake's health resets to after eating.
const MaxHealth = 100

// Elimination causes, matching the strings the Battlesnake engine reports.
const (
	CauseWallCollision  = "wall-collision"
	CauseSelfCollision  = "snake-self-collision"
	CauseBodyCollision  = "snake-collision"
	CauseHeadCollision  = "head-collision"
	CauseOutOfHealth    = "out-of-health"
	CauseNoMoveProvided = "no-move"
)

// Elimination records why a snake left the board.
type Elimination struct {
	SnakeId string
	Cause   string
	By      string
}

// NextState applies one simultaneous move for every snake and returns the new
// state along with the snakes eliminated this turn. A snake without an entry
// in moves is eliminated. Food is spawned with settings; a nil rng makes the
// spawn deterministic for the state.
func NextState(state *game.GameState, moves map[string]game.Direction, rng *rand.Rand, settings FoodSettings) (*game.GameState, []Elimination) {
	next := state.Clone()
	next.Turn++

	var out []Elimination
	eliminated := make(map[string]bool)
	eliminate := func(id, cause, by string) {
		if eliminated[id] {
			return
		}
		eliminated[id] = true
		out = append(out, Elimination{SnakeId: id, Cause: cause, By: by})
	}

	// 1. Move every snake: new head, tail advances, health ticks down.
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if len(s.Body) == 0 {
			eliminate(s.Id, CauseNoMoveProvided, "")
			continue
		}
		move, ok := moves[s.Id]
		if !ok || !move.Valid() {
			eliminate(s.Id, CauseNoMoveProvided, "")
			continue
		}
		newHead := s.Body[0].Step(move)
		copy(s.Body[1:], s.Body[:len(s.Body)-1])
		s.Body[0] = newHead
		s.Health--
	}

	// 2. Feed. Several snakes can share one food; it is consumed once.
	eaten := make(map[game.Point]bool)
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if eliminated[s.Id] {
			continue
		}
		for _, f := range next.Food {
			if f == s.Body[0] {
				eaten[f] = true
				s.Health = MaxHealth
				s.Body = append(s.Body, s.Body[len(s.Body)-1])
				break
			}
		}
	}
	if len(eaten) > 0 {
		remaining := next.Food[:0]
		for _, f := range next.Food {
			if !eaten[f] {
				remaining = append(remaining, f)
			}
		}
		next.Food = remaining
	}

	// 3. Eliminations, all judged against the post-move boards.
	for _, s := range next.Snakes {
		if eliminated[s.Id] {
			continue
		}
		if s.Health <= 0 {
			eliminate(s.Id, CauseOutOfHealth, "")
			continue
		}
		if !next.InBounds(s.Body[0]) {
			eliminate(s.Id, CauseWallCollision, "")
		}
	}

	var collisions []Elimination
	for _, s := range next.Snakes {
		if eliminated[s.Id] {
			continue
		}
		head := s.Body[0]
		if hitsBody(head, s.Body[1:]) {
			collisions = append(collisions, Elimination{SnakeId: s.Id, Cause: CauseSelfCollision, By: s.Id})
			continue
		}
		hit := false
		for _, other := range next.Snakes {
			if other.Id == s.Id || eliminated[other.Id] {
				continue
			}
			if hitsBody(head, other.Body[1:]) {
				collisions = append(collisions, Elimination{SnakeId: s.Id, Cause: CauseBodyCollision, By: other.Id})
				hit = true
				break
			}
		}
		if hit {
			continue
		}
		for _, other := range next.Snakes {
			if other.Id == s.Id || eliminated[other.Id] {
				continue
			}
			if other.Body[0] == head && len(s.Body) <= len(other.Body) {
				collisions = append(collisions, Elimination{SnakeId: s.Id, Cause: CauseHeadCollision, By: other.Id})
				break
			}
		}
	}
	for _, c := range collisions {
		eliminate(c.SnakeId, c.Cause, c.By)
	}

	alive := next.Snakes[:0]
	for _, s := range next.Snakes {
		if !eliminated[s.Id] {
			alive = append(alive, s)
		}
	}
	next.Snakes = alive

	applyFoodRules(next, rng, settings, 0x4E455854) // "NEXT"
	return next, out
}

func hitsBody(p game.Point, body []game.Point) bool {
	for _, b := range body {
		if b == p {
			return true
		}
	}
	return false
}

// IsGameOver reports whether at most one snake is left. Solo games should
// use Living instead.
func IsGameOver(state *game.GameState) bool {
	return Living(state) <= 1
}

// Living counts snakes still on the board with positive health.
func Living(state *game.GameState) int {
	n := 0
	for _, s := range state.Snakes {
		if s.Health > 0 && len(s.Body) > 0 {
			n++
		}
	}
	return n
}

// Winner returns the sole surviving snake, if there is exactly one.
func Winner(state *game.GameState) (string, bool) {
	id := ""
	n := 0
	for _, s := range state.Snakes {
		if s.Health > 0 && len(s.Body) > 0 {
			id = s.Id
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return id, true
}
