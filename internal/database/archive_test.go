package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-while/go-nzbidx/internal/models"
)

func TestArchiveRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	w, err := NewArchiveWriter(dataDir, "alt.binaries.test")
	if err != nil {
		t.Fatalf("NewArchiveWriter failed: %v", err)
	}

	first := testRow(3000, "archived", "a@example.com", 1136239445)
	second := testRow(3001, "undated", "b@example.com", 0)
	if err := w.Append([]*models.OverviewRow{first, second}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store := openTestStore(t)
	result, err := ImportNDJSON(store, w.Path, 100)
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}
	if result.Inserted != 2 || result.Ignored != 0 || result.Malformed != 0 {
		t.Errorf("import counts: %+v", result)
	}

	got, err := store.QueryRows(&QueryFilter{GroupName: "alt.binaries.test"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Subject != "archived" || !got[0].DateUnix.Valid {
		t.Errorf("first row wrong: %+v", got[0])
	}
	if got[1].DateUnix.Valid {
		t.Errorf("null date must survive the round trip: %+v", got[1])
	}

	// Re-import is idempotent
	again, err := ImportNDJSON(store, w.Path, 100)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if again.Inserted != 0 || again.Ignored != 2 {
		t.Errorf("second import counts: %+v", again)
	}
}

func TestImportSkipsMalformedLines(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "broken.ndjson")
	content := `{"article_num":1,"group_name":"alt.binaries.test","subject":"ok","from_addr":"a@x","date_raw":"","date_unix":null,"message_id":"<a@x>","references":"","bytes_len":10,"line_count":1,"xref":""}
this is not json
{"article_num":0,"message_id":"<zero@x>"}
{"article_num":2,"message_id":""}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := openTestStore(t)
	result, err := ImportNDJSON(store, path, 10)
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}
	if result.Inserted != 1 {
		t.Errorf("inserted: got %d, want 1", result.Inserted)
	}
	if result.Malformed != 3 {
		t.Errorf("malformed: got %d, want 3", result.Malformed)
	}
}
