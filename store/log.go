package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrClosed is returned by writers used after Close.
var ErrClosed = errors.New("store: closed")

// WrittenLog is the set of game ids the replay tool has already evaluated
// and flushed, persisted as an append-only file with one id per line.
//
// Blank lines and lines starting with '#' are ignored on load, so a torn
// final line after a crash costs at most one re-evaluated game.
type WrittenLog struct {
	mu   sync.RWMutex
	file *os.File
	ids  map[string]struct{}
}

func OpenWrittenLog(path string) (*WrittenLog, error) {
	if path == "" {
		return nil, errors.New("store: written log path is required")
	}

	ids := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ids[line] = struct{}{}
		}
		scanErr := sc.Err()
		_ = f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("read written log: %w", scanErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open written log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &WrittenLog{file: file, ids: ids}, nil
}

func (l *WrittenLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *WrittenLog) Has(gameID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[gameID]
	return ok
}

func (l *WrittenLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Known returns a copy of the id set, for seeding discovery dedupe.
func (l *WrittenLog) Known() map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := make(map[string]bool, len(l.ids))
	for id := range l.ids {
		m[id] = true
	}
	return m
}

// AddMany appends the ids not yet present and syncs once.
func (l *WrittenLog) AddMany(gameIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}

	var b strings.Builder
	fresh := make([]string, 0, len(gameIDs))
	seen := make(map[string]struct{}, len(gameIDs))
	for _, id := range gameIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := l.ids[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		b.WriteString(id)
		b.WriteByte('\n')
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return nil
	}

	if _, err := l.file.WriteString(b.String()); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	for _, id := range fresh {
		l.ids[id] = struct{}{}
	}
	return nil
}
