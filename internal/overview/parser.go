// Package overview parses XOVER response lines into OverviewRow records.
package overview

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/go-while/go-nzbidx/internal/metrics"
	"github.com/go-while/go-nzbidx/internal/models"
)

// ParseStats counts the outcome of one ParseLines call.
type ParseStats struct {
	Parsed  int64
	Dropped int64
}

// ParseLines parses raw overview lines for one group. Unparsable lines are
// dropped and counted, never fatal: a single mangled article must not sink
// a chunk of 100k.
func ParseLines(groupName string, lines []string) ([]*models.OverviewRow, ParseStats) {
	rows := make([]*models.OverviewRow, 0, len(lines))
	var stats ParseStats
	for _, line := range lines {
		row, ok := ParseLine(groupName, line)
		if !ok {
			stats.Dropped++
			metrics.ParseErrors.Inc()
			continue
		}
		stats.Parsed++
		metrics.RowsFetched.Inc()
		rows = append(rows, row)
	}
	return rows, stats
}

// ParseLine parses a single XOVER response line.
// Format: articlenum<tab>subject<tab>from<tab>date<tab>message-id<tab>references<tab>bytes<tab>lines
// with optional trailing full headers such as "Xref: server group:num".
func ParseLine(groupName, line string) (*models.OverviewRow, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 8 {
		return nil, false
	}

	articleNum, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || articleNum == 0 {
		return nil, false
	}

	messageID := normalizeMessageID(parts[4])
	if messageID == "" {
		return nil, false
	}

	row := &models.OverviewRow{
		ArticleNum: articleNum,
		GroupName:  groupName,
		Subject:    models.CleanUTF8(parts[1]),
		FromAddr:   models.CleanUTF8(parts[2]),
		DateRaw:    strings.TrimSpace(parts[3]),
		MessageID:  messageID,
		References: strings.TrimSpace(parts[5]),
		BytesLen:   parseNullInt64(parts[6]),
		LineCount:  parseNullInt32(parts[7]),
	}

	if t := ParseDate(row.DateRaw); !t.IsZero() {
		row.DateUnix = sql.NullInt64{Int64: t.Unix(), Valid: true}
	}

	// Optional trailing headers. Servers that advertise Xref:full append it
	// here with the header name included.
	for _, extra := range parts[8:] {
		if strings.HasPrefix(extra, "Xref: ") {
			row.Xref = strings.TrimSpace(strings.TrimPrefix(extra, "Xref: "))
		}
	}
	return row, true
}

// normalizeMessageID trims the field and guarantees the <...> form used as
// the stored representation.
func normalizeMessageID(field string) string {
	mid := strings.TrimSpace(field)
	if mid == "" || mid == "<>" {
		return ""
	}
	if !strings.HasPrefix(mid, "<") {
		mid = "<" + mid
	}
	if !strings.HasSuffix(mid, ">") {
		mid = mid + ">"
	}
	return mid
}

func parseNullInt64(field string) sql.NullInt64 {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil || n < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

func parseNullInt32(field string) sql.NullInt32 {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
	if err != nil || n < 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(n), Valid: true}
}
