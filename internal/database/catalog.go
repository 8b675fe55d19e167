package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-while/go-nzbidx/internal/models"
)

// Catalog caches the server's group list in <data_dir>/newsgroups.sqlite so
// group discovery does not need a LIST ACTIVE round-trip every time.
type Catalog struct {
	db   *sql.DB
	Path string
}

const query_catalog_initSchema = `
CREATE TABLE IF NOT EXISTS newsgroups (
	group_name TEXT PRIMARY KEY,
	first_article INTEGER NOT NULL DEFAULT 0,
	last_article INTEGER NOT NULL DEFAULT 0,
	article_count INTEGER NOT NULL DEFAULT 0,
	status_flag TEXT NOT NULL DEFAULT '',
	last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_newsgroups_count ON newsgroups(article_count);
`

// OpenCatalog opens (creating if needed) the group catalog.
func OpenCatalog(dataDir string) (*Catalog, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newsgroups.sqlite")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	cat := &Catalog{db: db, Path: dbPath}
	if _, err := retryableExec(db, "PRAGMA busy_timeout = 30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := retryableExec(db, query_catalog_initSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return cat, nil
}

const query_UpsertNewsgroup = `
INSERT OR REPLACE INTO newsgroups (
	group_name, first_article, last_article, article_count, status_flag, last_updated
) VALUES (?, ?, ?, ?, ?, ?)
`

// UpsertGroups refreshes the catalog from a LIST ACTIVE result.
func (c *Catalog) UpsertGroups(groups []models.GroupInfo) error {
	if len(groups) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return retryableTransactionExec(c.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query_UpsertNewsgroup)
		if err != nil {
			return fmt.Errorf("failed to prepare catalog upsert: %w", err)
		}
		defer stmt.Close()

		for _, g := range groups {
			if _, err := stmt.Exec(g.Name, g.First, g.Last, g.Count, g.Status, now); err != nil {
				return fmt.Errorf("failed to upsert group %s: %w", g.Name, err)
			}
		}
		return nil
	})
}

const query_ListNewsgroups = `
SELECT group_name, first_article, last_article, article_count, status_flag
FROM newsgroups
`

// ListGroups returns cached groups, optionally filtered by a substring or a
// simple wildmat (* translated to %). Ordered by name.
func (c *Catalog) ListGroups(pattern string) ([]models.GroupInfo, error) {
	var sb strings.Builder
	sb.WriteString(query_ListNewsgroups)
	var args []interface{}
	if pattern != "" {
		like := strings.ReplaceAll(pattern, "*", "%")
		if !strings.Contains(like, "%") {
			like = "%" + like + "%"
		}
		sb.WriteString("WHERE group_name LIKE ?\n")
		args = append(args, like)
	}
	sb.WriteString("ORDER BY group_name ASC")

	rows, err := retryableQuery(c.db, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupInfo
	for rows.Next() {
		var g models.GroupInfo
		if err := rows.Scan(&g.Name, &g.First, &g.Last, &g.Count, &g.Status); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		g.PostingOK = g.Status == "y"
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
