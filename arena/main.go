// Command arena plays the decision engine against copies of itself and
// archives every game to Parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/greedysnek/arena/match"
	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/envflag"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/rules"
	"github.com/brensch/greedysnek/store"
	tea "github.com/charmbracelet/bubbletea"
)

type runStats struct {
	moves atomic.Int64
	games atomic.Int64
}

func (s *runStats) Moves() int64 { return s.moves.Load() }
func (s *runStats) Games() int64 { return s.games.Load() }

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaults := match.DefaultConfig()
	outDir := fs.String("out-dir", envflag.String("OUT_DIR", "data/arena"), "Output directory for archived games (env: OUT_DIR)")
	workers := fs.Int("workers", envflag.Int("WORKERS", runtime.NumCPU()), "Games played in parallel (env: WORKERS)")
	gamesPerFlush := fs.Int("games-per-flush", envflag.Int("GAMES_PER_FLUSH", 50), "Games buffered per Parquet shard (env: GAMES_PER_FLUSH)")
	maxGames := fs.Int64("max-games", int64(envflag.Int("MAX_GAMES", 0)), "Stop after this many games; 0 runs until interrupted (env: MAX_GAMES)")
	snakes := fs.Int("snakes", envflag.Int("SNAKES", defaults.Snakes), "Snakes per game (env: SNAKES)")
	width := fs.Int("width", envflag.Int("WIDTH", int(defaults.Width)), "Board width (env: WIDTH)")
	height := fs.Int("height", envflag.Int("HEIGHT", int(defaults.Height)), "Board height (env: HEIGHT)")
	maxTurns := fs.Int("max-turns", envflag.Int("MAX_TURNS", defaults.MaxTurns), "Turn cap per game; 0 disables (env: MAX_TURNS)")
	minFood := fs.Int("min-food", envflag.Int("MIN_FOOD", defaults.Food.MinimumFood), "Minimum food on the board (env: MIN_FOOD)")
	foodChance := fs.Int("food-chance", envflag.Int("FOOD_CHANCE", defaults.Food.FoodSpawnChance), "Percent chance of extra food per turn (env: FOOD_CHANCE)")
	seed := fs.Int64("seed", int64(envflag.Int("SEED", 0)), "Base RNG seed; 0 uses the clock (env: SEED)")
	useTUI := fs.Bool("tui", envflag.Bool("TUI", false), "Show the terminal dashboard (env: TUI)")
	logLevel := fs.String("log-level", envflag.String("LOG_LEVEL", "info"), "debug|info|warn|error (env: LOG_LEVEL)")
	logFormat := fs.String("log-format", envflag.String("LOG_FORMAT", "text"), "text|json|pretty (env: LOG_FORMAT)")
	logFile := fs.String("log-file", envflag.String("LOG_FILE", ""), "Write logs here instead of stderr; defaults to arena.log with -tui (env: LOG_FILE)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaults
	cfg.Snakes = *snakes
	cfg.Width, cfg.Height = int32(*width), int32(*height)
	cfg.MaxTurns = *maxTurns
	cfg.Food = rules.FoodSettings{MinimumFood: *minFood, FoodSpawnChance: *foodChance}
	if *workers < 1 {
		*workers = 1
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	// Logs would tear the dashboard, so they go to a file under -tui.
	var logOut io.Writer = os.Stderr
	if *logFile == "" && *useTUI {
		*logFile = "arena.log"
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(logOut, logging.Options{Format: *logFormat, Level: level})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Fail on a bad board before starting any workers.
	if _, err := match.NewGame(rand.New(rand.NewSource(*seed)), cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	engine := decision.NewEngine(logger)
	stats := &runStats{}
	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan []store.ArchiveTurnRow, *workers*4)

	writerDone := make(chan struct{})
	go func() {
		games, shards := archiveWriterLoop(*outDir, *gamesPerFlush, writeReqs, logger)
		logger.Info("archive writer done", "games", games, "shards", shards)
		close(writerDone)
	}()

	logger.Info("arena starting", "workers", *workers, "snakes", cfg.Snakes, "width", cfg.Width, "height", cfg.Height, "seed", *seed, "out_dir", *outDir)

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			rng := rand.New(rand.NewSource(*seed + int64(workerID)*1000003))
			wlog := logger.With("worker", workerID)
			for ctx.Err() == nil {
				rows, res, err := match.Play(ctx, engine, rng, cfg, func() { stats.moves.Add(1) })
				if err != nil {
					if ctx.Err() == nil {
						wlog.Error("game aborted", "err", err)
					}
					return
				}
				total := stats.games.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}
				if *maxGames > 0 && total > *maxGames {
					return
				}

				writeReqs <- rows
				wlog.Debug("game finished", "game_id", res.GameID, "winner", res.Winner, "turns", res.Turns, "rows", len(rows))

				// Avoid blocking shutdown if nobody is consuming updates.
				select {
				case updates <- GameUpdate{WorkerID: workerID, GameID: res.GameID, Winner: res.Winner, Turns: res.Turns, Rows: len(rows), Reasons: res.Reasons}:
				default:
				}
			}
		}(i)
	}

	go func() {
		workerWG.Wait()
		close(writeReqs)
		close(updates)
	}()

	if *useTUI {
		p := tea.NewProgram(initialModel(updates, stats), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			logger.Error("dashboard", "err", err)
		}
		cancel()
		for range updates {
		}
	} else {
		logProgress(ctx, logger, updates, stats)
	}

	<-writerDone
	logger.Info("arena stopped", "games", stats.Games(), "moves", stats.Moves())
	return nil
}

// logProgress is the dashboard without a terminal: a progress line every
// ten seconds until the workers have all stopped.
func logProgress(ctx context.Context, logger *slog.Logger, updates <-chan GameUpdate, stats *runStats) {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	m := initialModel(nil, stats)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			m = m.record(u)
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			logger.Info("progress",
				"games", m.gamesPlayed,
				"moves", stats.Moves(),
				"moves_per_sec", float64(stats.Moves())/elapsed,
				"draws", m.draws,
				"food", m.reasons["food"],
				"safe", m.reasons["safe"],
				"trapped", m.reasons["trapped"],
				"stopping", ctx.Err() != nil,
			)
		}
	}
}
