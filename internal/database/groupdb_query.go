package database

import (
	"fmt"
	"strings"

	"github.com/go-while/go-nzbidx/internal/models"
)

// QueryFilter selects rows from one group store. Zero values mean "not set".
// Exclusion lists hold one substring per entry; the config layer splits the
// |-separated form before it gets here.
type QueryFilter struct {
	GroupName    string
	SubjectLike  string
	NotSubject   []string
	FromLike     string
	NotFrom      []string
	DateFromUnix int64
	DateToUnix   int64
	Limit        int
}

const query_SelectArticles = `
SELECT article_num, group_name, subject, from_addr, date_raw, date_unix,
	message_id, refs, bytes_len, line_count, xref
FROM articles
`

// QueryRows returns rows matching the filter ordered by article_num ascending.
// LIKE matching is case-insensitive for ASCII, which covers Usenet subjects.
func (s *GroupStore) QueryRows(filter *QueryFilter) ([]*models.OverviewRow, error) {
	if filter == nil || filter.GroupName == "" {
		return nil, fmt.Errorf("filter with group_name is required")
	}

	var sb strings.Builder
	sb.WriteString(query_SelectArticles)
	sb.WriteString("WHERE group_name = ?")
	args := []interface{}{filter.GroupName}

	if filter.SubjectLike != "" {
		sb.WriteString(" AND subject LIKE ?")
		args = append(args, "%"+filter.SubjectLike+"%")
	}
	for _, term := range filter.NotSubject {
		if term == "" {
			continue
		}
		sb.WriteString(" AND subject NOT LIKE ?")
		args = append(args, "%"+term+"%")
	}
	if filter.FromLike != "" {
		sb.WriteString(" AND from_addr LIKE ?")
		args = append(args, "%"+filter.FromLike+"%")
	}
	for _, term := range filter.NotFrom {
		if term == "" {
			continue
		}
		sb.WriteString(" AND from_addr NOT LIKE ?")
		args = append(args, "%"+term+"%")
	}
	if filter.DateFromUnix > 0 {
		sb.WriteString(" AND date_unix >= ?")
		args = append(args, filter.DateFromUnix)
	}
	if filter.DateToUnix > 0 {
		sb.WriteString(" AND date_unix <= ?")
		args = append(args, filter.DateToUnix)
	}

	sb.WriteString(" ORDER BY article_num ASC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := retryableQuery(s.db, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var result []*models.OverviewRow
	for rows.Next() {
		var row models.OverviewRow
		err := rows.Scan(&row.ArticleNum, &row.GroupName, &row.Subject, &row.FromAddr,
			&row.DateRaw, &row.DateUnix, &row.MessageID, &row.References,
			&row.BytesLen, &row.LineCount, &row.Xref)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

const query_CountArticles = `
SELECT COUNT(*) FROM articles WHERE group_name = ?
`

// CountRows returns the number of stored rows for the group.
func (s *GroupStore) CountRows() (int64, error) {
	var count int64
	err := retryableQueryRowScan(s.db, query_CountArticles, []interface{}{s.GroupName}, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}
