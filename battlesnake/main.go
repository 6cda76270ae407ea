// Command battlesnake serves the greedy decision engine over the Battlesnake
// webhook API.
//
// Every /move is answered from the request alone: the engine filters out
// moves that die this turn, prefers food among the rest and breaks ties at
// random. Decisions are optionally recorded to Parquet for later analysis.
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

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/envflag"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/store"
)

const version = "1.0.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("battlesnake", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", envflag.ListenAddr("LISTEN", ":8080"), "HTTP listen address (env: LISTEN or PORT)")
	author := fs.String("author", envflag.String("AUTHOR", "greedysnek"), "Author shown on the info endpoint (env: AUTHOR)")
	color := fs.String("color", envflag.String("COLOR", "#3cb371"), "Snake color (env: COLOR)")
	head := fs.String("head", envflag.String("HEAD", "default"), "Snake head style (env: HEAD)")
	tail := fs.String("tail", envflag.String("TAIL", "default"), "Snake tail style (env: TAIL)")
	logLevel := fs.String("log-level", envflag.String("LOG_LEVEL", "info"), "debug|info|warn|error (env: LOG_LEVEL)")
	logFormat := fs.String("log-format", envflag.String("LOG_FORMAT", "json"), "text|json|pretty (env: LOG_FORMAT)")
	decisionsDir := fs.String("decisions-dir", envflag.String("DECISIONS_DIR", ""), "Directory for decision Parquet shards; empty disables recording (env: DECISIONS_DIR)")
	flushRows := fs.Int("flush-rows", envflag.Int("FLUSH_ROWS", 1000), "Decision rows per shard (env: FLUSH_ROWS)")
	flushEvery := fs.Duration("flush-every", envflag.Duration("FLUSH_EVERY", time.Minute), "Maximum time between decision flushes (env: FLUSH_EVERY)")

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

	var opts []ServerOption
	var recorder *store.Recorder
	if *decisionsDir != "" {
		recorder = store.NewRecorder(store.RecorderConfig{
			OutDir:     *decisionsDir,
			FlushRows:  *flushRows,
			FlushEvery: *flushEvery,
		}, logger)
		opts = append(opts, WithRecorder(recorder))
	}

	server := NewServer(decision.NewEngine(logger), InfoResponse{
		APIVersion: "1",
		Author:     *author,
		Color:      *color,
		Head:       *head,
		Tail:       *tail,
		Version:    version,
	}, logger, opts...)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("battlesnake server listening", "addr", *listen, "recording", recorder != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if recorder != nil {
			_ = recorder.Close()
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("shutdown", "err", err)
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("recorder close", "err", err)
		}
		st := recorder.Stats()
		logger.Info("recorder closed", "rows", st.Rows, "shards", st.Shards, "dropped", st.Dropped, "failed", st.Failed)
	}
	return nil
}
