package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/replay/downloader"
	"github.com/brensch/greedysnek/store"
	"github.com/parquet-go/parquet-go"
)

type firstRand struct{}

func (firstRand) Intn(int) int { return 0 }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func coords(xy ...int) []downloader.Coord {
	out := make([]downloader.Coord, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, downloader.Coord{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func replayFrames() []downloader.FrameData {
	board := downloader.BoardData{Width: 11, Height: 11}
	return []downloader.FrameData{
		{Turn: 0, Board: board, Food: coords(1, 2), Snakes: []downloader.SnakeData{
			{ID: "a", Name: "Alpha", Health: 100, Body: coords(1, 1, 1, 1, 1, 1)},
			{ID: "b", Name: "Beta", Health: 100, Body: coords(9, 9, 9, 9, 9, 9)},
		}},
		{Turn: 1, Board: board, Snakes: []downloader.SnakeData{
			{ID: "a", Name: "Alpha", Health: 100, Body: coords(1, 2, 1, 1, 1, 1, 1, 1)},
			{ID: "b", Name: "Beta", Health: 99, Body: coords(10, 9, 9, 9, 9, 9), Death: &downloader.Death{Cause: "head-collision", Turn: 1}},
		}},
		// Alpha's head jumps, so no move can be read off this pair.
		{Turn: 2, Board: board, Snakes: []downloader.SnakeData{
			{ID: "a", Name: "Alpha", Health: 99, Body: coords(5, 5, 1, 2, 1, 1, 1, 1)},
		}},
	}
}

func TestEvaluate(t *testing.T) {
	engine := decision.NewEngine(quietLogger())
	rows := Evaluate(context.Background(), "g", replayFrames(), engine, firstRand{})
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}

	a, b := rows[0], rows[1]
	if a.SnakeID != "a" || a.Actual != "up" || a.Engine != "up" || a.Reason != "food" || !a.Agree || !a.ActualOnFood || !a.Survived {
		t.Fatalf("alpha row=%+v", a)
	}
	if b.SnakeID != "b" || b.Actual != "right" || b.Engine != "up" || b.Agree || !b.ActualSafe || b.Survived || b.SnakeName != "Beta" {
		t.Fatalf("beta row=%+v", b)
	}
	if len(b.Safe) != 4 {
		t.Fatalf("beta safe=%v", b.Safe)
	}
}

func TestEvaluate_TooShort(t *testing.T) {
	if rows := Evaluate(context.Background(), "g", replayFrames()[:1], decision.NewEngine(quietLogger()), firstRand{}); len(rows) != 0 {
		t.Fatalf("rows=%v", rows)
	}
}

func newRunner(t *testing.T, dir string, written *store.WrittenLog, calls *[]string) *runner {
	t.Helper()
	return &runner{
		outDir:  dir,
		written: written,
		engine:  decision.NewEngine(quietLogger()),
		rng:     firstRand{},
		download: func(_ context.Context, id string) (downloader.Game, error) {
			*calls = append(*calls, id)
			if id == "bad" {
				return downloader.Game{}, errors.New("feed down")
			}
			return downloader.Game{ID: id, Frames: replayFrames()}, nil
		},
		flushGames: 2,
		log:        quietLogger(),
	}
}

func TestRunner_FlushesAndRemembers(t *testing.T) {
	dir := t.TempDir()
	written, err := store.OpenWrittenLog(filepath.Join(dir, "written.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer written.Close()

	var calls []string
	r := newRunner(t, dir, written, &calls)

	ids := make(chan string, 8)
	for _, id := range []string{"g1", "g1", "bad", "g2", "g3"} {
		ids <- id
	}
	close(ids)
	if err := r.run(context.Background(), ids, time.Hour); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(calls) != 4 {
		t.Fatalf("downloads=%v", calls)
	}
	st := r.stats
	if st.evaluated != 3 || st.skipped != 1 || st.failed != 1 || st.batches != 2 || st.rows != 6 {
		t.Fatalf("stats=%+v", st)
	}
	for _, id := range []string{"g1", "g2", "g3"} {
		if !written.Has(id) {
			t.Fatalf("%s not in written log", id)
		}
	}

	shards, _ := filepath.Glob(filepath.Join(dir, "replay_*.parquet"))
	if len(shards) != 2 {
		t.Fatalf("shards=%v", shards)
	}
	total := 0
	for _, p := range shards {
		rows, err := parquet.ReadFile[store.ReplayRow](p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		total += len(rows)
	}
	if total != 6 {
		t.Fatalf("rows on disk=%d", total)
	}

	// A rerun skips everything already written.
	calls = nil
	again := newRunner(t, dir, written, &calls)
	ids = make(chan string, 2)
	ids <- "g2"
	close(ids)
	if err := again.run(context.Background(), ids, time.Hour); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(calls) != 0 || again.stats.skipped != 1 {
		t.Fatalf("rerun downloads=%v stats=%+v", calls, again.stats)
	}
}
