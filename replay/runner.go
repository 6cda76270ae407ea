package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/replay/downloader"
	"github.com/brensch/greedysnek/store"
)

type runStats struct {
	attempted, evaluated, skipped, failed int
	batches, rows, agree                  int
}

// runner evaluates games from an id channel and streams the rows into one
// Parquet shard per flush. Game ids reach the written log only after the
// shard holding them is on disk.
type runner struct {
	outDir     string
	written    *store.WrittenLog
	engine     *decision.Engine
	rng        decision.Rand
	download   func(ctx context.Context, gameID string) (downloader.Game, error)
	flushGames int
	log        *slog.Logger

	batch   *store.BatchWriter[store.ReplayRow]
	pending []string
	stats   runStats
}

func (r *runner) run(ctx context.Context, ids <-chan string, flushEvery time.Duration) error {
	if r.flushGames <= 0 {
		r.flushGames = 200
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Minute
	}
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush("signal")
			r.log.Info("interrupted", r.summary()...)
			return nil
		case <-ticker.C:
			r.flush("ticker")
		case id, ok := <-ids:
			if !ok {
				r.flush("final")
				r.log.Info("replay complete", r.summary()...)
				return nil
			}
			r.handle(ctx, id)
			if len(r.pending) >= r.flushGames {
				r.flush("count")
			}
		}
	}
}

func (r *runner) handle(ctx context.Context, gameID string) {
	if r.written.Has(gameID) {
		r.stats.skipped++
		return
	}
	for _, p := range r.pending {
		if p == gameID {
			r.stats.skipped++
			return
		}
	}

	r.stats.attempted++
	g, err := r.download(ctx, gameID)
	if err != nil {
		if ctx.Err() == nil {
			r.fail(gameID, "download", err)
		}
		return
	}
	if len(g.Frames) < 2 {
		r.fail(gameID, "too few frames", nil)
		return
	}

	rows := Evaluate(ctx, gameID, g.Frames, r.engine, r.rng)
	if len(rows) == 0 {
		r.fail(gameID, "no moves inferred", nil)
		return
	}

	if r.batch == nil {
		b, err := store.NewReplayBatchWriter(r.outDir)
		if err != nil {
			r.fail(gameID, "open batch", err)
			return
		}
		r.batch = b
	}
	if err := r.batch.WriteGame(rows); err != nil {
		r.fail(gameID, "write rows", err)
		return
	}
	for _, row := range rows {
		if row.Agree {
			r.stats.agree++
		}
	}
	r.pending = append(r.pending, gameID)
	r.stats.evaluated++
	r.stats.rows += len(rows)
	if r.stats.evaluated%50 == 0 {
		r.log.Info("progress", r.summary()...)
	}
}

func (r *runner) fail(gameID, stage string, err error) {
	r.stats.failed++
	// Failures come in bursts when the engine is down; sample the log.
	if r.stats.failed%50 == 1 {
		r.log.Warn("game failed", "game_id", gameID, "stage", stage, "failures", r.stats.failed, "err", err)
	}
}

func (r *runner) flush(reason string) {
	if r.batch == nil {
		return
	}
	path, rows, games, err := r.batch.Finalize()
	r.batch = nil
	if err != nil {
		r.log.Error("flush failed", "reason", reason, "err", err)
		r.pending = r.pending[:0]
		return
	}
	if games == 0 {
		return
	}
	if err := r.written.AddMany(r.pending); err != nil {
		// The shard is on disk; a missed log entry only means re-evaluation.
		r.log.Error("written log append failed", "reason", reason, "err", err)
	}
	r.stats.batches++
	r.log.Info("flushed batch", "reason", reason, "games", games, "rows", rows, "path", path)
	r.pending = r.pending[:0]
}

func (r *runner) summary() []any {
	agreement := 0.0
	if r.stats.rows > 0 {
		agreement = float64(r.stats.agree) / float64(r.stats.rows)
	}
	return []any{
		"attempted", r.stats.attempted,
		"evaluated", r.stats.evaluated,
		"skipped", r.stats.skipped,
		"failed", r.stats.failed,
		"batches", r.stats.batches,
		"rows", r.stats.rows,
		"agreement", agreement,
	}
}
