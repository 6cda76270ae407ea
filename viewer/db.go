package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Dirs are the Parquet roots behind each view. An empty dir yields an empty
// view rather than an error, so the viewer starts before any data exists.
type Dirs struct {
	Decisions string
	Arena     string
	Replays   string
}

// DBCache maintains a cached DuckDB connection that refreshes periodically.
type DBCache struct {
	dirs        Dirs
	refreshRate time.Duration
	log         *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time

	// Cached games index for pagination; dropped on every refresh.
	gamesIndex []GameSummary
}

func NewDBCache(dirs Dirs, refreshRate time.Duration, logger *slog.Logger) *DBCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBCache{dirs: dirs, refreshRate: refreshRate, log: logger}
}

// Get returns the cached DB connection, refreshing if needed.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

// Refresh forces a refresh of the cached DB connection.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, err := openDuckDB(c.dirs)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	c.gamesIndex = nil

	c.log.Debug("db cache refreshed", "took", time.Since(start))
	return c.db, nil
}

// GamesIndex returns the cached arena games index, rebuilding if needed.
func (c *DBCache) GamesIndex(ctx context.Context) ([]GameSummary, error) {
	db, err := c.Get()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.gamesIndex != nil && c.db == db {
		idx := c.gamesIndex
		c.mu.RUnlock()
		return idx, nil
	}
	c.mu.RUnlock()

	start := time.Now()
	games, err := queryAllGames(ctx, db, c.dirs.Arena)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.db == db {
		c.gamesIndex = games
	}
	c.mu.Unlock()
	c.log.Debug("games index rebuilt", "games", len(games), "took", time.Since(start))
	return games, nil
}

// Close closes the cached DB connection.
func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

const (
	emptyDecisions = `SELECT
		NULL::VARCHAR AS game_id, NULL::INTEGER AS turn, NULL::VARCHAR AS snake_id,
		NULL::VARCHAR AS move, NULL::VARCHAR AS reason, NULL::VARCHAR[] AS anomalies,
		NULL::BIGINT AS latency_ns, NULL::VARCHAR AS source, NULL::VARCHAR AS filename`
	emptyTurns = `SELECT
		NULL::VARCHAR AS game_id, NULL::INTEGER AS turn, NULL::INTEGER AS width, NULL::INTEGER AS height,
		NULL::INTEGER[] AS food_x, NULL::INTEGER[] AS food_y,
		NULL::STRUCT(
			id VARCHAR, alive BOOLEAN, health INTEGER, body_x INTEGER[], body_y INTEGER[],
			policy INTEGER, reason VARCHAR, value REAL, cause VARCHAR
		)[] AS snakes,
		NULL::VARCHAR AS source, NULL::VARCHAR AS filename`
	emptyReplays = `SELECT
		NULL::VARCHAR AS game_id, NULL::INTEGER AS turn, NULL::VARCHAR AS snake_id, NULL::VARCHAR AS snake_name,
		NULL::VARCHAR AS actual, NULL::VARCHAR AS engine, NULL::VARCHAR AS reason,
		NULL::BOOLEAN AS actual_safe, NULL::BOOLEAN AS actual_on_food, NULL::BOOLEAN AS agree,
		NULL::BOOLEAN AS survived, NULL::VARCHAR AS filename`
)

// openDuckDB creates an in-memory DuckDB with one view per Parquet root.
func openDuckDB(dirs Dirs) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	for _, v := range []struct{ name, dir, empty string }{
		{"decisions", dirs.Decisions, emptyDecisions},
		{"turns", dirs.Arena, emptyTurns},
		{"replays", dirs.Replays, emptyReplays},
	} {
		if _, err := db.Exec(viewSQL(v.name, v.dir, v.empty)); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// viewSQL reads every shard under dir, skipping dir's tmp/ staging area.
// union_by_name lets older shards with fewer columns sit beside newer ones.
func viewSQL(name, dir, empty string) string {
	if !hasShards(dir) {
		return `CREATE OR REPLACE VIEW ` + name + ` AS SELECT * FROM (` + empty + `) WHERE 1=0`
	}
	glob := filepath.Join(dir, "**", "*.parquet")
	staging := filepath.Join(dir, "tmp") + string(filepath.Separator)
	return `CREATE OR REPLACE VIEW ` + name + ` AS
		SELECT * FROM read_parquet(['` + escapeSQLString(glob) + `'], filename=true, union_by_name=true)
		WHERE NOT starts_with(filename, '` + escapeSQLString(staging) + `')`
}

var errFound = errors.New("found")

// hasShards reports whether dir holds at least one finished Parquet shard.
// read_parquet fails on a glob with no matches.
func hasShards(dir string) bool {
	if strings.TrimSpace(dir) == "" {
		return false
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == "tmp" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}
