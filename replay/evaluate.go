package main

import (
	"context"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/replay/downloader"
	"github.com/brensch/greedysnek/store"
)

// Evaluate asks engine what it would have played for every living snake in
// every frame but the last, and compares that with the move the snake
// actually made, read off the next frame. Moves that cannot be inferred
// (missing snake, teleporting head) are skipped.
func Evaluate(ctx context.Context, gameID string, frames []downloader.FrameData, engine *decision.Engine, rng decision.Rand) []store.ReplayRow {
	var rows []store.ReplayRow
	for i := 0; i+1 < len(frames); i++ {
		cur, next := &frames[i], &frames[i+1]
		for j := range cur.Snakes {
			s := &cur.Snakes[j]
			if !s.Alive() {
				continue
			}
			after := next.Snake(s.ID)
			if after == nil || len(after.Body) == 0 {
				continue
			}
			actual, ok := game.DirectionBetween(s.Body[0].Point(), after.Body[0].Point())
			if !ok {
				continue
			}

			snap, err := decision.NewSnapshot(cur.State(s.ID))
			if err != nil {
				continue
			}
			d := engine.Move(ctx, snap, rng, "game_id", gameID, "turn", cur.Turn, "snake", s.Name)

			rows = append(rows, store.ReplayRow{
				GameID:       gameID,
				Turn:         int32(cur.Turn),
				SnakeID:      s.ID,
				SnakeName:    s.Name,
				Actual:       actual.String(),
				Engine:       d.Move.String(),
				Reason:       d.Reason.String(),
				Safe:         d.Safe.Names(),
				ActualSafe:   d.Safe.Has(actual),
				ActualOnFood: d.Food.Has(actual),
				Agree:        actual == d.Move,
				Survived:     after.Alive(),
			})
		}
	}
	return rows
}
