package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// WriteDecisionBatchAtomic writes one decision log shard into outDir.
func WriteDecisionBatchAtomic(outDir string, rows []DecisionRow) (string, error) {
	return writeBatchAtomic(outDir, "decisions", SchemaDecision, rows)
}

// WriteArchiveBatchAtomic writes one arena archive shard into outDir.
func WriteArchiveBatchAtomic(outDir string, rows []ArchiveTurnRow) (string, error) {
	return writeBatchAtomic(outDir, "arena", SchemaArchive, rows)
}

// WriteReplayBatchAtomic writes one replay evaluation shard into outDir.
func WriteReplayBatchAtomic(outDir string, rows []ReplayRow) (string, error) {
	return writeBatchAtomic(outDir, "replay", SchemaReplay, rows)
}

// writeBatchAtomic writes rows to outDir/tmp and renames the file into
// outDir, so readers globbing outDir never observe a partial shard.
func writeBatchAtomic[T any](outDir, prefix, schema string, rows []T) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := shardName(prefix)
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

var shardSeq atomic.Uint64

// shardName is unique within the process even when two shards are cut in
// the same clock tick.
func shardName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d.parquet", prefix, time.Now().UnixNano(), shardSeq.Add(1))
}
