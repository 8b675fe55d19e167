package overview

import (
	"strings"
	"testing"
)

func overviewLine(fields ...string) string {
	return strings.Join(fields, "\t")
}

func TestParseLineFullRecord(t *testing.T) {
	line := overviewLine(
		"3001",
		`Big File (1/3) "file.rar" yEnc`,
		"poster <p@example.com>",
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"<seg1@example.com>",
		"<ref@example.com>",
		"150000",
		"1172",
		"Xref: news.example.com alt.binaries.test:3001",
	)

	row, ok := ParseLine("alt.binaries.test", line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if row.ArticleNum != 3001 {
		t.Errorf("article num: got %d", row.ArticleNum)
	}
	if row.GroupName != "alt.binaries.test" {
		t.Errorf("group name: got %q", row.GroupName)
	}
	if row.Subject != `Big File (1/3) "file.rar" yEnc` {
		t.Errorf("subject: got %q", row.Subject)
	}
	if row.MessageID != "<seg1@example.com>" {
		t.Errorf("message id: got %q", row.MessageID)
	}
	if !row.DateUnix.Valid || row.DateUnix.Int64 != 1136239445 {
		t.Errorf("date unix: got %+v", row.DateUnix)
	}
	if row.DateRaw != "Mon, 02 Jan 2006 15:04:05 -0700" {
		t.Errorf("date raw: got %q", row.DateRaw)
	}
	if !row.BytesLen.Valid || row.BytesLen.Int64 != 150000 {
		t.Errorf("bytes: got %+v", row.BytesLen)
	}
	if !row.LineCount.Valid || row.LineCount.Int32 != 1172 {
		t.Errorf("lines: got %+v", row.LineCount)
	}
	if row.Xref != "news.example.com alt.binaries.test:3001" {
		t.Errorf("xref: got %q", row.Xref)
	}
}

func TestParseLineDropsGarbage(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{"too few fields", overviewLine("3001", "subject", "from", "date", "<m@x>", "", "100")},
		{"empty line", ""},
		{"zero article number", overviewLine("0", "s", "f", "d", "<m@x>", "", "1", "2")},
		{"non-numeric article number", overviewLine("abc", "s", "f", "d", "<m@x>", "", "1", "2")},
		{"empty message id", overviewLine("1", "s", "f", "d", "", "", "1", "2")},
		{"empty bracket message id", overviewLine("1", "s", "f", "d", "<>", "", "1", "2")},
	}

	for _, tc := range testCases {
		if row, ok := ParseLine("alt.test", tc.line); ok {
			t.Errorf("%s: expected drop, got row %+v", tc.name, row)
		}
	}
}

func TestParseLineNormalizesMessageID(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"<seg@example.com>", "<seg@example.com>"},
		{"seg@example.com", "<seg@example.com>"},
		{"  <seg@example.com>  ", "<seg@example.com>"},
		{"<seg@example.com", "<seg@example.com>"},
		{"seg@example.com>", "<seg@example.com>"},
	}

	for _, tc := range testCases {
		line := overviewLine("5", "s", "f", "d", tc.in, "", "1", "2")
		row, ok := ParseLine("alt.test", line)
		if !ok {
			t.Errorf("message id %q: expected parse", tc.in)
			continue
		}
		if row.MessageID != tc.want {
			t.Errorf("message id %q: got %q, want %q", tc.in, row.MessageID, tc.want)
		}
	}
}

func TestParseLineNullableNumerics(t *testing.T) {
	line := overviewLine("7", "s", "f", "not a date", "<m@x>", "", "garbage", "")
	row, ok := ParseLine("alt.test", line)
	if !ok {
		t.Fatal("expected parse despite bad numerics")
	}
	if row.BytesLen.Valid {
		t.Errorf("bytes should be NULL, got %+v", row.BytesLen)
	}
	if row.LineCount.Valid {
		t.Errorf("lines should be NULL, got %+v", row.LineCount)
	}
	if row.DateUnix.Valid {
		t.Errorf("date should be NULL, got %+v", row.DateUnix)
	}
	if row.DateRaw != "not a date" {
		t.Errorf("raw date must be preserved, got %q", row.DateRaw)
	}
}

func TestParseLineDecodesSubject(t *testing.T) {
	// Raw Latin-1 bytes in the subject must come out as valid UTF-8
	line := overviewLine("9", "Gr\xfc\xdfe", "poster \xe9 <p@x>", "d", "<m@x>", "", "1", "2")
	row, ok := ParseLine("alt.test", line)
	if !ok {
		t.Fatal("expected parse")
	}
	if row.Subject != "Grüße" {
		t.Errorf("subject not decoded: got %q", row.Subject)
	}
	if row.FromAddr != "poster é <p@x>" {
		t.Errorf("from not decoded: got %q", row.FromAddr)
	}
}

func TestParseLines(t *testing.T) {
	lines := []string{
		overviewLine("1", "a", "f", "d", "<a@x>", "", "10", "1"),
		"mangled line without tabs",
		overviewLine("2", "b", "f", "d", "<b@x>", "", "20", "2"),
	}

	rows, stats := ParseLines("alt.test", lines)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if stats.Parsed != 2 || stats.Dropped != 1 {
		t.Errorf("stats: got %+v", stats)
	}
	if rows[0].ArticleNum != 1 || rows[1].ArticleNum != 2 {
		t.Errorf("rows out of order: %d, %d", rows[0].ArticleNum, rows[1].ArticleNum)
	}
}
