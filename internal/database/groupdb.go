// Package database persists overview rows in per-group SQLite files plus a
// shared newsgroup catalog.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// GroupStore is the persistent overview index for one newsgroup, stored as
// <data_dir>/<group>.sqlite.
type GroupStore struct {
	db        *sql.DB
	GroupName string
	Path      string
}

const query_groupStore_initSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	group_name TEXT NOT NULL,
	article_num INTEGER NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	from_addr TEXT NOT NULL DEFAULT '',
	date_raw TEXT NOT NULL DEFAULT '',
	date_unix INTEGER,
	message_id TEXT NOT NULL,
	refs TEXT NOT NULL DEFAULT '',
	bytes_len INTEGER,
	line_count INTEGER,
	xref TEXT NOT NULL DEFAULT '',
	UNIQUE(group_name, article_num)
);

CREATE INDEX IF NOT EXISTS idx_articles_subject ON articles(group_name, subject);
CREATE INDEX IF NOT EXISTS idx_articles_from ON articles(group_name, from_addr);
CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(group_name, date_unix);
CREATE INDEX IF NOT EXISTS idx_articles_message_id ON articles(message_id);

CREATE TABLE IF NOT EXISTS fetch_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	group_name TEXT NOT NULL,
	low_article INTEGER NOT NULL,
	high_article INTEGER NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	rows_inserted INTEGER NOT NULL DEFAULT 0,
	rows_ignored INTEGER NOT NULL DEFAULT 0,
	chunks_failed INTEGER NOT NULL DEFAULT 0,
	parse_errors INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_group ON fetch_runs(group_name, finished_at);
`

// OpenGroupStore opens (creating if needed) the overview index for one group.
func OpenGroupStore(dataDir, groupName string) (*GroupStore, error) {
	if groupName == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, groupName+".sqlite")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open group database: %w", err)
	}
	// One connection: all writes go through a single writer anyway, and the
	// session pragmas below only apply per connection.
	db.SetMaxOpenConns(1)

	store := &GroupStore{db: db, GroupName: groupName, Path: dbPath}
	if err := store.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// applyPragmas applies performance and configuration pragmas. The store is a
// bulk-write index that can always be refetched, so durability is traded for
// write speed.
func (s *GroupStore) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}
	return nil
}

func (s *GroupStore) initSchema() error {
	_, err := retryableExec(s.db, query_groupStore_initSchema)
	return err
}

const query_LocalRange = `
SELECT COALESCE(MIN(article_num), 0), COALESCE(MAX(article_num), 0)
FROM articles WHERE group_name = ?
`

// LocalRange returns the lowest and highest article number already stored for
// the group, (0, 0) when the store is empty. Incremental fetches resume from
// here instead of refetching the full server range.
func (s *GroupStore) LocalRange() (low, high uint64, err error) {
	err = retryableQueryRowScan(s.db, query_LocalRange, []interface{}{s.GroupName}, &low, &high)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query local range: %w", err)
	}
	return low, high, nil
}

// StoreStats summarizes one group store for the stats command.
type StoreStats struct {
	GroupName  string
	Rows       int64
	MinArticle uint64
	MaxArticle uint64
	MinDate    sql.NullInt64
	MaxDate    sql.NullInt64
	Posters    int64
	FileBytes  int64
}

const query_StoreStats = `
SELECT COUNT(*),
	COALESCE(MIN(article_num), 0),
	COALESCE(MAX(article_num), 0),
	MIN(date_unix),
	MAX(date_unix),
	COUNT(DISTINCT from_addr)
FROM articles WHERE group_name = ?
`

// Stats returns row counts and ranges for the stats command.
func (s *GroupStore) Stats() (*StoreStats, error) {
	stats := &StoreStats{GroupName: s.GroupName}
	err := retryableQueryRowScan(s.db, query_StoreStats, []interface{}{s.GroupName},
		&stats.Rows, &stats.MinArticle, &stats.MaxArticle, &stats.MinDate, &stats.MaxDate, &stats.Posters)
	if err != nil {
		return nil, fmt.Errorf("failed to query store stats: %w", err)
	}
	if fi, err := os.Stat(s.Path); err == nil {
		stats.FileBytes = fi.Size()
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *GroupStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		log.Printf("[STORE] failed to close %s: %v", s.Path, err)
		return err
	}
	return nil
}
