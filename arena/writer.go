package main

import (
	"log/slog"

	"github.com/brensch/greedysnek/store"
)

// archiveWriterLoop buffers finished games and writes one Parquet shard per
// gamesPerFlush games, plus a final shard for the remainder once in closes.
func archiveWriterLoop(outDir string, gamesPerFlush int, in <-chan []store.ArchiveTurnRow, logger *slog.Logger) (games, shards int) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	pendingRows := make([]store.ArchiveTurnRow, 0, 256*gamesPerFlush)
	pendingGames := 0

	flush := func(reason string) {
		if pendingGames == 0 || len(pendingRows) == 0 {
			return
		}
		outPath, err := store.WriteArchiveBatchAtomic(outDir, pendingRows)
		if err != nil {
			logger.Error("archive flush failed", "reason", reason, "games", pendingGames, "rows", len(pendingRows), "err", err)
		} else {
			logger.Info("archive flush ok", "reason", reason, "path", outPath, "games", pendingGames, "rows", len(pendingRows))
			games += pendingGames
			shards++
		}
		pendingRows = pendingRows[:0]
		pendingGames = 0
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		pendingRows = append(pendingRows, rows...)
		pendingGames++
		if pendingGames >= gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
	return games, shards
}
