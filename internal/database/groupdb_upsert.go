package database

import (
	"database/sql"
	"fmt"

	"github.com/go-while/go-nzbidx/internal/metrics"
	"github.com/go-while/go-nzbidx/internal/models"
)

const query_UpsertArticle = `
INSERT OR IGNORE INTO articles (
	group_name, article_num, subject, from_addr, date_raw, date_unix,
	message_id, refs, bytes_len, line_count, xref
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// UpsertRows writes one batch of parsed rows in a single transaction.
// Conflicts on (group_name, article_num) are ignored, which makes refetching
// an overlapping range idempotent. Returns how many rows were newly inserted
// and how many were already present.
func (s *GroupStore) UpsertRows(rows []*models.OverviewRow) (inserted, ignored int64, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	err = retryableTransactionExec(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query_UpsertArticle)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		// Counters reset here: the whole transaction reruns on lock conflicts.
		inserted, ignored = 0, 0
		for _, row := range rows {
			res, err := stmt.Exec(
				row.GroupName, row.ArticleNum, row.Subject, row.FromAddr,
				row.DateRaw, row.DateUnix, row.MessageID, row.References,
				row.BytesLen, row.LineCount, row.Xref,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert article %d: %w", row.ArticleNum, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n > 0 {
				inserted++
			} else {
				ignored++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	metrics.RowsInserted.Add(float64(inserted))
	metrics.RowsIgnored.Add(float64(ignored))
	return inserted, ignored, nil
}

const query_RecordFetchRun = `
INSERT INTO fetch_runs (
	group_name, low_article, high_article, started_at, finished_at,
	rows_inserted, rows_ignored, chunks_failed, parse_errors
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// RecordFetchRun appends one run to the history table.
func (s *GroupStore) RecordFetchRun(run *models.FetchRun) error {
	_, err := retryableExec(s.db, query_RecordFetchRun,
		run.GroupName, run.LowArticle, run.HighArticle,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.RowsInserted, run.RowsIgnored, run.ChunksFailed, run.ParseErrors,
	)
	if err != nil {
		return fmt.Errorf("failed to record fetch run: %w", err)
	}
	return nil
}

const query_RecentFetchRuns = `
SELECT id, group_name, low_article, high_article, started_at, finished_at,
	rows_inserted, rows_ignored, chunks_failed, parse_errors
FROM fetch_runs
WHERE group_name = ?
ORDER BY finished_at DESC, id DESC
LIMIT ?
`

// RecentFetchRuns returns the most recent runs, newest first.
func (s *GroupStore) RecentFetchRuns(limit int) ([]*models.FetchRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := retryableQuery(s.db, query_RecentFetchRuns, s.GroupName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.FetchRun
	for rows.Next() {
		var run models.FetchRun
		err := rows.Scan(&run.ID, &run.GroupName, &run.LowArticle, &run.HighArticle,
			&run.StartedAt, &run.FinishedAt,
			&run.RowsInserted, &run.RowsIgnored, &run.ChunksFailed, &run.ParseErrors)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
