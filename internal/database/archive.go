package database

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-while/go-nzbidx/internal/models"
)

// archiveRow is the NDJSON form of an OverviewRow: nullable columns become
// JSON null instead of the sql.Null* wrapper shape.
type archiveRow struct {
	ArticleNum uint64 `json:"article_num"`
	GroupName  string `json:"group_name"`
	Subject    string `json:"subject"`
	FromAddr   string `json:"from_addr"`
	DateRaw    string `json:"date_raw"`
	DateUnix   *int64 `json:"date_unix"`
	MessageID  string `json:"message_id"`
	References string `json:"references"`
	BytesLen   *int64 `json:"bytes_len"`
	LineCount  *int32 `json:"line_count"`
	Xref       string `json:"xref"`
}

func toArchiveRow(row *models.OverviewRow) archiveRow {
	a := archiveRow{
		ArticleNum: row.ArticleNum,
		GroupName:  row.GroupName,
		Subject:    row.Subject,
		FromAddr:   row.FromAddr,
		DateRaw:    row.DateRaw,
		MessageID:  row.MessageID,
		References: row.References,
		Xref:       row.Xref,
	}
	if row.DateUnix.Valid {
		v := row.DateUnix.Int64
		a.DateUnix = &v
	}
	if row.BytesLen.Valid {
		v := row.BytesLen.Int64
		a.BytesLen = &v
	}
	if row.LineCount.Valid {
		v := row.LineCount.Int32
		a.LineCount = &v
	}
	return a
}

func (a *archiveRow) toOverviewRow() *models.OverviewRow {
	row := &models.OverviewRow{
		ArticleNum: a.ArticleNum,
		GroupName:  a.GroupName,
		Subject:    a.Subject,
		FromAddr:   a.FromAddr,
		DateRaw:    a.DateRaw,
		MessageID:  a.MessageID,
		References: a.References,
		Xref:       a.Xref,
	}
	if a.DateUnix != nil {
		row.DateUnix = sql.NullInt64{Int64: *a.DateUnix, Valid: true}
	}
	if a.BytesLen != nil {
		row.BytesLen = sql.NullInt64{Int64: *a.BytesLen, Valid: true}
	}
	if a.LineCount != nil {
		row.LineCount = sql.NullInt32{Int32: *a.LineCount, Valid: true}
	}
	return row
}

// ArchiveWriter appends fetched rows to <data_dir>/headers-archive/<group>.ndjson,
// one JSON object per line. The archive survives store rebuilds and feeds the
// import command.
type ArchiveWriter struct {
	file *os.File
	buf  *bufio.Writer
	Path string
}

// NewArchiveWriter opens the archive file for appending.
func NewArchiveWriter(dataDir, groupName string) (*ArchiveWriter, error) {
	dir := filepath.Join(dataDir, "headers-archive")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	path := filepath.Join(dir, groupName+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	return &ArchiveWriter{
		file: f,
		buf:  bufio.NewWriterSize(f, 1<<20),
		Path: path,
	}, nil
}

// Append writes one batch of rows.
func (w *ArchiveWriter) Append(rows []*models.OverviewRow) error {
	enc := json.NewEncoder(w.buf)
	for _, row := range rows {
		a := toArchiveRow(row)
		if err := enc.Encode(&a); err != nil {
			return fmt.Errorf("failed to encode archive row %d: %w", row.ArticleNum, err)
		}
	}
	return nil
}

// Close flushes and closes the archive file.
func (w *ArchiveWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	return w.file.Close()
}

// ImportResult summarizes one NDJSON import.
type ImportResult struct {
	Inserted  int64
	Ignored   int64
	Malformed int64
}

// ImportNDJSON reads an archive file and upserts its rows into the store in
// batches. Malformed lines are skipped and counted.
func ImportNDJSON(store *GroupStore, path string, batchSize int) (*ImportResult, error) {
	if batchSize <= 0 {
		batchSize = 10000
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()

	result := &ImportResult{}
	batch := make([]*models.OverviewRow, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, ignored, err := store.UpsertRows(batch)
		if err != nil {
			return err
		}
		result.Inserted += inserted
		result.Ignored += ignored
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a archiveRow
		if err := json.Unmarshal(line, &a); err != nil {
			result.Malformed++
			log.Printf("[IMPORT] skipping malformed line %d in %s: %v", lineNum, path, err)
			continue
		}
		if a.ArticleNum == 0 || a.MessageID == "" {
			result.Malformed++
			continue
		}
		if a.GroupName == "" {
			a.GroupName = store.GroupName
		}
		batch = append(batch, a.toOverviewRow())
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read archive file: %w", err)
	}
	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}
