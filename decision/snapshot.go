// Package decision picks a single move for one snake on one turn.
//
// The rules are deliberately one step deep: drop every direction that would
// reverse onto the neck, leave the board, or enter a cell currently occupied
// by any snake (tails included), then prefer the survivors that land on food.
// Ties are broken uniformly at random with a caller-supplied source.
//
// Every function here is pure. The package keeps no state between turns and
// shares nothing between games.
package decision

import (
	"errors"

	"github.com/brensch/greedysnek/game"
)

// ErrSnakeNotFound is returned when a state's YouId matches no snake.
var ErrSnakeNotFound = errors.New("decision: you snake not on board")

// Snapshot is the engine's view of a turn: the deciding snake and every
// other snake, already separated.
type Snapshot struct {
	Width  int32
	Height int32
	Food   []game.Point
	You    game.Snake
	Others []game.Snake
}

// NewSnapshot splits state.Snakes around state.YouId.
// The returned snapshot shares slices with state; nothing in this package
// writes through them.
func NewSnapshot(state *game.GameState) (Snapshot, error) {
	snap := Snapshot{
		Width:  state.Width,
		Height: state.Height,
		Food:   state.Food,
		Others: make([]game.Snake, 0, len(state.Snakes)),
	}
	found := false
	for _, s := range state.Snakes {
		if s.Id == state.YouId && !found {
			snap.You = s
			found = true
			continue
		}
		snap.Others = append(snap.Others, s)
	}
	if !found {
		return Snapshot{}, ErrSnakeNotFound
	}
	return snap, nil
}

// Anomaly flags snapshot shapes the rules tolerate but were not built for.
type Anomaly uint8

const (
	// AnomalyNoNeck: the body has fewer than two segments, so the reversal
	// rule is skipped.
	AnomalyNoNeck Anomaly = 1 << iota
	// AnomalyStackedNeck: head and neck share a cell (turn 0 spawns), so the
	// reversal rule removes nothing.
	AnomalyStackedNeck
	// AnomalyDetachedNeck: the neck is not an axis-aligned neighbour of the head.
	AnomalyDetachedNeck
)

func (a Anomaly) Has(flag Anomaly) bool { return a&flag != 0 }

// Names lists the set flags for logging.
func (a Anomaly) Names() []string {
	var out []string
	if a.Has(AnomalyNoNeck) {
		out = append(out, "no_neck")
	}
	if a.Has(AnomalyStackedNeck) {
		out = append(out, "stacked_neck")
	}
	if a.Has(AnomalyDetachedNeck) {
		out = append(out, "detached_neck")
	}
	return out
}

// Anomalies inspects the head and neck of s.You.
func Anomalies(s Snapshot) Anomaly {
	body := s.You.Body
	if len(body) < 2 {
		return AnomalyNoNeck
	}
	head, neck := body[0], body[1]
	if head == neck {
		return AnomalyStackedNeck
	}
	if _, ok := game.DirectionBetween(neck, head); !ok {
		return AnomalyDetachedNeck
	}
	return 0
}
