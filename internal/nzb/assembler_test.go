package nzb

import (
	"database/sql"
	"testing"

	"github.com/go-while/go-nzbidx/internal/models"
)

func testRow(num uint64, subj, from, mid string, bytesLen, dateUnix int64) *models.OverviewRow {
	row := &models.OverviewRow{
		ArticleNum: num,
		GroupName:  "alt.binaries.test",
		Subject:    subj,
		FromAddr:   from,
		DateRaw:    "Mon, 01 Jan 2024 00:00:00 +0000",
		MessageID:  mid,
	}
	if bytesLen > 0 {
		row.BytesLen = sql.NullInt64{Int64: bytesLen, Valid: true}
	}
	if dateUnix > 0 {
		row.DateUnix = sql.NullInt64{Int64: dateUnix, Valid: true}
	}
	return row
}

func TestAssembleCompleteSet(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(101, `Set "file.bin" (1/3) yEnc`, "Bob", "<p1@x>", 100, 1000),
		testRow(102, `Set "file.bin" (2/3) yEnc`, "Bob", "<p2@x>", 110, 1001),
		testRow(103, `Set "file.bin" (3/3) yEnc`, "Bob", "<p3@x>", 120, 1002),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true, SkipExe: true})
	if len(res.Collections) != 1 {
		t.Fatalf("collections = %d, want 1", len(res.Collections))
	}
	c := res.Collections[0]
	if c.FromAddr != "Bob" {
		t.Errorf("collection poster = %q, want Bob", c.FromAddr)
	}
	if len(c.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(c.Files))
	}
	f := c.Files[0]
	if f.FileKey != "file.bin" || f.PartTotal != 3 || !f.Complete() {
		t.Errorf("file = key %q total %d complete %v, want file.bin/3/true",
			f.FileKey, f.PartTotal, f.Complete())
	}
	if res.Files != 1 || res.Segments != 3 {
		t.Errorf("counters = %d files %d segments, want 1/3", res.Files, res.Segments)
	}
}

func TestAssembleDropsIncompleteSet(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(101, `Set "file.bin" (1/3) yEnc`, "Bob", "<p1@x>", 100, 1000),
		testRow(103, `Set "file.bin" (3/3) yEnc`, "Bob", "<p3@x>", 120, 1002),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true})
	if len(res.Collections) != 0 || res.DroppedIncomplete != 1 {
		t.Errorf("collections = %d dropped = %d, want 0/1",
			len(res.Collections), res.DroppedIncomplete)
	}

	// without the completeness requirement the partial file survives
	res = Assemble(rows, Options{})
	if len(res.Collections) != 1 || res.Segments != 2 {
		t.Errorf("collections = %d segments = %d, want 1/2",
			len(res.Collections), res.Segments)
	}
}

func TestAssembleFirstPartWins(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(10, `Dupe "d.bin" (1/2)`, "Eve", "<a@x>", 1, 0),
		testRow(11, `Dupe "d.bin" (2/2)`, "Eve", "<b@x>", 1, 0),
		testRow(12, `Dupe "d.bin" (2/2)`, "Eve", "<c@x>", 1, 0),
	}
	res := Assemble(rows, Options{})
	if len(res.Collections) != 1 || len(res.Collections[0].Files) != 1 {
		t.Fatalf("unexpected grouping: %+v", res.Collections)
	}
	f := res.Collections[0].Files[0]
	if got := f.Parts[2].MessageID; got != "<b@x>" {
		t.Errorf("part 2 message id = %q, want the first seen <b@x>", got)
	}
}

func TestAssembleSkipsExe(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(1, `Totally safe "setup.EXE" (1/1)`, "Mallory", "<e@x>", 5, 0),
	}
	res := Assemble(rows, Options{SkipExe: true})
	if len(res.Collections) != 0 || res.DroppedExe != 1 {
		t.Errorf("collections = %d dropped = %d, want 0/1",
			len(res.Collections), res.DroppedExe)
	}
	res = Assemble(rows, Options{})
	if len(res.Collections) != 1 {
		t.Errorf("collections = %d without skip_exe, want 1", len(res.Collections))
	}
}

func TestAssembleSinglePartDefaults(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(7, "A lone post", "Carol", "<lone@x>", 9, 0),
		// repost of the same single-part subject folds into the same file
		testRow(8, "A lone post", "Carol", "<lone2@x>", 9, 0),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true})
	if len(res.Collections) != 1 {
		t.Fatalf("collections = %d, want 1", len(res.Collections))
	}
	f := res.Collections[0].Files[0]
	if f.PartTotal != 1 || !f.Complete() || len(f.Parts) != 1 {
		t.Errorf("single-part file = total %d parts %d complete %v",
			f.PartTotal, len(f.Parts), f.Complete())
	}
	if f.Parts[1].MessageID != "<lone@x>" {
		t.Errorf("part 1 message id = %q, want <lone@x>", f.Parts[1].MessageID)
	}
}

func TestAssembleDropsEmptyMessageID(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(1, "No mid here (1/1)", "X", "", 1, 0),
	}
	res := Assemble(rows, Options{})
	if len(res.Collections) != 0 || res.DroppedNoMessageID != 1 {
		t.Errorf("collections = %d dropped = %d, want 0/1",
			len(res.Collections), res.DroppedNoMessageID)
	}
}

func TestAssembleGroupsVolumesIntoOneCollection(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(20, "Pack.part02.rar (1/2)", "bob", "<b1@x>", 1, 0),
		testRow(21, "Pack.part02.rar (2/2)", "bob", "<b2@x>", 1, 0),
		testRow(10, "Pack.part01.rar (1/2)", "bob", "<a1@x>", 1, 0),
		testRow(11, "Pack.part01.rar (2/2)", "bob", "<a2@x>", 1, 0),
		testRow(99, `Apples "x.jpg" (1/1)`, "alice", "<ap@x>", 1, 0),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true})
	if len(res.Collections) != 2 {
		t.Fatalf("collections = %d, want 2", len(res.Collections))
	}
	// collections sort by poster, not by article number
	if res.Collections[0].FromAddr != "alice" || res.Collections[1].FromAddr != "bob" {
		t.Errorf("collection order = %q, %q, want alice, bob",
			res.Collections[0].FromAddr, res.Collections[1].FromAddr)
	}
	c := res.Collections[1]
	if c.CollectionKey != "pack" {
		t.Errorf("collection key = %q, want pack", c.CollectionKey)
	}
	if len(c.Files) != 2 {
		t.Fatalf("files in collection = %d, want 2", len(c.Files))
	}
	// files ordered by lowest article number
	if c.Files[0].FileKey != "Pack.part01.rar" || c.Files[1].FileKey != "Pack.part02.rar" {
		t.Errorf("file order = %q, %q", c.Files[0].FileKey, c.Files[1].FileKey)
	}

	flat := FlattenFiles(res.Collections)
	if len(flat) != 3 || flat[0].FileKey != "Pack.part01.rar" || flat[2].FileKey != "x.jpg" {
		t.Errorf("flattened order wrong: %+v", flatKeys(flat))
	}
}

func flatKeys(files []*models.File) []string {
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.FileKey
	}
	return keys
}
