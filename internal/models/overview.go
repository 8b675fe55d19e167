// Package models defines core data structures for go-nzbidx
package models

import (
	"database/sql"
	"strings"
	"time"
)

// OverviewRow is one indexed article as returned by XOVER and stored in the
// per-group database. (GroupName, ArticleNum) is the unique key; MessageID
// should be unique per group but upstream servers may repeat it.
type OverviewRow struct {
	ArticleNum uint64        `json:"article_num" db:"article_num"`
	GroupName  string        `json:"group_name" db:"group_name"`
	Subject    string        `json:"subject" db:"subject"`
	FromAddr   string        `json:"from_addr" db:"from_addr"`
	DateRaw    string        `json:"date_raw" db:"date_raw"`
	DateUnix   sql.NullInt64 `json:"date_unix" db:"date_unix"`
	MessageID  string        `json:"message_id" db:"message_id"`
	References string        `json:"references" db:"refs"`
	BytesLen   sql.NullInt64 `json:"bytes_len" db:"bytes_len"`
	LineCount  sql.NullInt32 `json:"line_count" db:"line_count"`
	Xref       string        `json:"xref" db:"xref"`
}

// MessageIDText returns the message-id without surrounding angle brackets,
// the form NZB segments use.
func (r *OverviewRow) MessageIDText() string {
	mid := strings.TrimSpace(r.MessageID)
	if strings.HasPrefix(mid, "<") && strings.HasSuffix(mid, ">") {
		return mid[1 : len(mid)-1]
	}
	return mid
}

// FetchRun is one completed fetch invocation recorded in the fetch_runs table.
type FetchRun struct {
	ID           int64     `json:"id" db:"id"`
	GroupName    string    `json:"group_name" db:"group_name"`
	LowArticle   int64     `json:"low_article" db:"low_article"`
	HighArticle  int64     `json:"high_article" db:"high_article"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	FinishedAt   time.Time `json:"finished_at" db:"finished_at"`
	RowsInserted int64     `json:"rows_inserted" db:"rows_inserted"`
	RowsIgnored  int64     `json:"rows_ignored" db:"rows_ignored"`
	ChunksFailed int64     `json:"chunks_failed" db:"chunks_failed"`
	ParseErrors  int64     `json:"parse_errors" db:"parse_errors"`
}

// GroupInfo is one newsgroup as reported by GROUP or LIST ACTIVE.
type GroupInfo struct {
	Name      string `json:"name" db:"group_name"`
	Count     int64  `json:"count" db:"article_count"`
	First     int64  `json:"first" db:"first_article"`
	Last      int64  `json:"last" db:"last_article"`
	Status    string `json:"status" db:"status_flag"`
	PostingOK bool   `json:"posting_ok"`
}
