package match

import (
	"context"
	"math/rand"
	"sort"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/rules"
	"github.com/brensch/greedysnek/store"
)

// Result summarises a finished game.
type Result struct {
	GameID string
	// Winner is empty for a draw or a game stopped at MaxTurns with more
	// than one survivor.
	Winner       string
	Turns        int
	Reasons      map[string]int
	Eliminations []rules.Elimination
}

// Play runs one game from NewGame to completion. Every living snake decides
// with engine from its own point of view each turn, and the moves are applied
// simultaneously.
//
// The returned rows hold one snapshot per turn before moves are applied, then
// a terminal row. onStep, if set, is called once per turn played.
// Cancelling ctx abandons the game and returns ctx.Err().
func Play(ctx context.Context, engine *decision.Engine, rng *rand.Rand, cfg Config, onStep func()) ([]store.ArchiveTurnRow, Result, error) {
	g, err := NewGame(rng, cfg)
	if err != nil {
		return nil, Result{}, err
	}
	return playFrom(ctx, engine, rng, cfg, g, onStep)
}

func playFrom(ctx context.Context, engine *decision.Engine, rng *rand.Rand, cfg Config, g Game, onStep func()) ([]store.ArchiveTurnRow, Result, error) {
	state := g.State
	res := Result{GameID: g.ID, Reasons: make(map[string]int)}
	rows := make([]store.ArchiveTurnRow, 0, 128)
	solo := len(state.Snakes) == 1

	// Causes land on the row of the turn the snake was removed, which is
	// the next snapshot.
	pending := map[string]string{}
	var removed []game.Snake

	for !finished(state, solo) && (cfg.MaxTurns <= 0 || int(state.Turn) < cfg.MaxTurns) {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}

		moves := make(map[string]game.Direction, len(state.Snakes))
		picks := make(map[string]decision.Decision, len(state.Snakes))
		for _, s := range state.Snakes {
			view := *state
			view.YouId = s.Id
			snap, err := decision.NewSnapshot(&view)
			if err != nil {
				continue
			}
			d := engine.Move(ctx, snap, rng, "game_id", g.ID, "turn", state.Turn)
			moves[s.Id] = d.Move
			picks[s.Id] = d
			res.Reasons[d.Reason.String()]++
		}

		rows = append(rows, turnRow(g.ID, cfg.Source, state, removed, pending, picks))
		removed, pending = nil, map[string]string{}

		next, elims := rules.NextState(state, moves, rng, cfg.Food)
		for _, e := range elims {
			pending[e.SnakeId] = e.Cause
			if s := state.Find(e.SnakeId); s != nil {
				removed = append(removed, *s)
			}
		}
		res.Eliminations = append(res.Eliminations, elims...)
		state = next

		if onStep != nil {
			onStep()
		}
	}

	rows = append(rows, turnRow(g.ID, cfg.Source, state, removed, pending, nil))

	res.Turns = int(state.Turn)
	res.Winner, _ = rules.Winner(state)
	if solo {
		res.Winner = ""
	}
	assignValues(rows, res.Winner)
	return rows, res, nil
}

func finished(state *game.GameState, solo bool) bool {
	if solo {
		return rules.Living(state) == 0
	}
	return rules.IsGameOver(state)
}

// turnRow snapshots state. Snakes eliminated on the move into this state are
// listed dead with their last body and cause.
func turnRow(gameID, source string, state *game.GameState, removed []game.Snake, causes map[string]string, picks map[string]decision.Decision) store.ArchiveTurnRow {
	row := store.ArchiveTurnRow{
		GameID: gameID,
		Turn:   state.Turn,
		Width:  state.Width,
		Height: state.Height,
		Source: source,
	}
	if len(state.Food) > 0 {
		row.FoodX = make([]int32, 0, len(state.Food))
		row.FoodY = make([]int32, 0, len(state.Food))
		for _, p := range state.Food {
			row.FoodX = append(row.FoodX, p.X)
			row.FoodY = append(row.FoodY, p.Y)
		}
	}

	row.Snakes = make([]store.ArchiveSnake, 0, len(state.Snakes)+len(removed))
	for _, s := range state.Snakes {
		as := archiveSnake(s, true)
		if d, ok := picks[s.Id]; ok {
			as.Policy = int32(d.Move)
			as.Reason = d.Reason.String()
		}
		row.Snakes = append(row.Snakes, as)
	}
	for _, s := range removed {
		as := archiveSnake(s, false)
		as.Cause = causes[s.Id]
		row.Snakes = append(row.Snakes, as)
	}
	sort.Slice(row.Snakes, func(i, j int) bool { return row.Snakes[i].ID < row.Snakes[j].ID })
	return row
}

func archiveSnake(s game.Snake, alive bool) store.ArchiveSnake {
	as := store.ArchiveSnake{
		ID:     s.Id,
		Alive:  alive && s.Health > 0 && len(s.Body) > 0,
		Health: s.Health,
		Policy: -1,
	}
	if len(s.Body) > 0 {
		as.BodyX = make([]int32, 0, len(s.Body))
		as.BodyY = make([]int32, 0, len(s.Body))
		for _, p := range s.Body {
			as.BodyX = append(as.BodyX, p.X)
			as.BodyY = append(as.BodyY, p.Y)
		}
	}
	return as
}

// assignValues fills the outcome once it is known: 1 for the winner, -1 for
// everyone else, 0 for all on a draw.
func assignValues(rows []store.ArchiveTurnRow, winner string) {
	for i := range rows {
		for j := range rows[i].Snakes {
			switch {
			case winner == "":
				rows[i].Snakes[j].Value = 0
			case rows[i].Snakes[j].ID == winner:
				rows[i].Snakes[j].Value = 1
			default:
				rows[i].Snakes[j].Value = -1
			}
		}
	}
}
