// Command viewer serves JSON summaries of the Parquet files written by the
// battlesnake server, the arena and the replay tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/greedysnek/envflag"
	"github.com/brensch/greedysnek/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", envflag.ListenAddr("LISTEN", ":8090"), "HTTP listen address (env: LISTEN or PORT)")
	decisions := fs.String("decisions-dir", envflag.String("DECISIONS_DIR", "data/decisions"), "Decision log shards (env: DECISIONS_DIR)")
	arena := fs.String("arena-dir", envflag.String("ARENA_DIR", "data/arena"), "Arena archive shards (env: ARENA_DIR)")
	replays := fs.String("replays-dir", envflag.String("REPLAYS_DIR", "data/replays"), "Replay evaluation shards (env: REPLAYS_DIR)")
	refresh := fs.Duration("refresh", envflag.Duration("REFRESH", 30*time.Second), "How long a DuckDB snapshot of the shards is reused (env: REFRESH)")
	logLevel := fs.String("log-level", envflag.String("LOG_LEVEL", "info"), "debug|info|warn|error (env: LOG_LEVEL)")
	logFormat := fs.String("log-format", envflag.String("LOG_FORMAT", "text"), "text|json|pretty (env: LOG_FORMAT)")

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

	cache := NewDBCache(Dirs{Decisions: *decisions, Arena: *arena, Replays: *replays}, *refresh, logger)
	defer cache.Close()
	if err := cache.Refresh(); err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}

	mux := http.NewServeMux()
	NewServer(cache, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("viewer listening", "addr", *listen, "decisions", *decisions, "arena", *arena, "replays", *replays)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
