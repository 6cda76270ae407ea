// Command replay downloads recorded Battlesnake games and scores the
// decision engine against the moves real snakes made, writing one
// ReplayRow per snake per turn to Parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/envflag"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/replay/discovery"
	"github.com/brensch/greedysnek/replay/downloader"
	"github.com/brensch/greedysnek/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	outDir := fs.String("out-dir", envflag.String("OUT_DIR", "data/replays"), "Directory to write replay .parquet files (env: OUT_DIR)")
	logPath := fs.String("log-path", envflag.String("WRITTEN_LOG", "data/replays/written_games.log"), "Append-only log of game ids already evaluated (env: WRITTEN_LOG)")
	games := fs.String("games", envflag.String("GAMES", ""), "Comma-separated game ids; empty crawls the leaderboards (env: GAMES)")
	flushGames := fs.Int("flush-games", envflag.Int("FLUSH_GAMES", 200), "Flush when buffered games reaches this count (env: FLUSH_GAMES)")
	flushEvery := fs.Duration("flush-every", envflag.Duration("FLUSH_EVERY", 10*time.Minute), "Flush at this interval regardless of buffered count (env: FLUSH_EVERY)")
	maxPlayers := fs.Int("max-players", envflag.Int("MAX_PLAYERS", 50), "Players checked per leaderboard (env: MAX_PLAYERS)")
	requestDelay := fs.Duration("delay", envflag.Duration("DELAY", 500*time.Millisecond), "Delay between HTTP requests (env: DELAY)")
	leaderboards := fs.String("leaderboards", envflag.String("LEADERBOARDS", strings.Join(discovery.DefaultConfig().LeaderboardURLs, ",")), "Comma-separated leaderboard URLs (env: LEADERBOARDS)")
	engineURL := fs.String("engine-url", envflag.String("ENGINE_URL", downloader.DefaultConfig().EngineURL), "Websocket URL template for game events (env: ENGINE_URL)")
	seed := fs.Int64("seed", int64(envflag.Int("SEED", 0)), "RNG seed for engine tie-breaks; 0 uses the clock (env: SEED)")
	logLevel := fs.String("log-level", envflag.String("LOG_LEVEL", "info"), "debug|info|warn|error (env: LOG_LEVEL)")
	logFormat := fs.String("log-format", envflag.String("LOG_FORMAT", "pretty"), "text|json|pretty (env: LOG_FORMAT)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, logging.Options{Format: *logFormat, Level: level})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	abs, err := filepath.Abs(*outDir)
	if err != nil {
		return err
	}

	written, err := store.OpenWrittenLog(*logPath)
	if err != nil {
		return fmt.Errorf("open written log: %w", err)
	}
	defer written.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("replay starting",
		"out_dir", abs,
		"written_log", *logPath,
		"already_written", written.Count(),
		"flush_games", *flushGames,
		"flush_every", *flushEvery,
	)

	ids := make(chan string, 1000)
	go func() {
		defer close(ids)
		if list := splitList(*games); len(list) > 0 {
			for _, id := range list {
				select {
				case ids <- id:
				case <-ctx.Done():
					return
				}
			}
			return
		}
		disc := discovery.NewWorker(discovery.Config{
			LeaderboardURLs: splitList(*leaderboards),
			RequestDelay:    *requestDelay,
			MaxPlayers:      *maxPlayers,
		}, written.Known(), logger)
		if err := disc.Discover(ctx, ids); err != nil && ctx.Err() == nil {
			logger.Error("discovery", "err", err)
		}
	}()

	dl := downloader.DefaultConfig()
	dl.EngineURL = *engineURL
	dl.Logger = logger

	r := &runner{
		outDir:     abs,
		written:    written,
		engine:     decision.NewEngine(logger),
		rng:        rand.New(rand.NewSource(*seed)),
		download:   func(ctx context.Context, id string) (downloader.Game, error) { return downloader.DownloadGame(ctx, id, dl) },
		flushGames: *flushGames,
		log:        logger,
	}
	return r.run(ctx, ids, *flushEvery)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
