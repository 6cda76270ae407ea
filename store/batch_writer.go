package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams rows into a single shard under outDir/tmp and moves
// it into outDir on Finalize. Long-running writers use it to avoid holding a
// whole batch in memory.
type BatchWriter[T any] struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[T]

	games int
	rows  int
}

// NewReplayBatchWriter opens a streaming shard for replay rows.
func NewReplayBatchWriter(outDir string) (*BatchWriter[ReplayRow], error) {
	return NewBatchWriter[ReplayRow](outDir, "replay", SchemaReplay)
}

func NewBatchWriter[T any](outDir, prefix, schema string) (*BatchWriter[T], error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := shardName(prefix)
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[T](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", schema)

	return &BatchWriter[T]{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (b *BatchWriter[T]) OutPath() string { return b.outPath }
func (b *BatchWriter[T]) Games() int      { return b.games }
func (b *BatchWriter[T]) Rows() int       { return b.rows }

// WriteGame appends the rows of one game.
func (b *BatchWriter[T]) WriteGame(rows []T) error {
	if b.writer == nil {
		return ErrClosed
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	b.rows += len(rows)
	b.games++
	return nil
}

// Finalize closes the shard and moves it into outDir. An empty shard is
// removed and reported with an empty path.
func (b *BatchWriter[T]) Finalize() (outPath string, rows int, games int, err error) {
	if b.writer == nil {
		return "", 0, 0, nil
	}

	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	fileErr := b.file.Close()
	b.file = nil

	if closeErr != nil {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, b.games, nil
}
