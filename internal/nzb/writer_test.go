package nzb

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-while/go-nzbidx/internal/models"
)

func TestBuildDocumentExactXML(t *testing.T) {
	f := &models.File{
		CollectionKey: `report & "q.pdf"`,
		FileKey:       "q.pdf",
		PartTotal:     2,
		Parts: map[uint32]*models.OverviewRow{
			1: testRow(5, `Report & "q.pdf" (1/2) yEnc`, "Alice <a@x>", "<m1@x>", 42, 1704067200),
			2: testRow(6, `Report & "q.pdf" (2/2) yEnc`, "Alice <a@x>", "<m2@x>", 43, 1704067201),
		},
	}
	got := string(BuildDocument("alt.binaries.test", []*models.File{f}))
	want := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE nzb PUBLIC "-//newzBin//DTD NZB 1.1//EN" "http://www.newzbin.com/DTD/nzb/nzb-1.1.dtd">
<nzb xmlns="http://www.newzbin.com/DTD/2003/nzb">
  <file poster="Alice &lt;a@x&gt;" date="1704067200" subject="Report &amp; &quot;q.pdf&quot; (1/2) yEnc">
    <groups>
      <group>alt.binaries.test</group>
    </groups>
    <segments>
      <segment bytes="42" number="1">m1@x</segment>
      <segment bytes="43" number="2">m2@x</segment>
    </segments>
  </file>
</nzb>
`
	if got != want {
		t.Errorf("document mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildDocumentNullDateAndBytes(t *testing.T) {
	f := &models.File{
		FileKey:   "undated",
		PartTotal: 1,
		Parts: map[uint32]*models.OverviewRow{
			1: testRow(1, "undated post", "x", "<u@x>", 0, 0),
		},
	}
	got := string(BuildDocument("g", []*models.File{f}))
	if !strings.Contains(got, `date="0"`) || !strings.Contains(got, `bytes="0"`) {
		t.Errorf("null date/bytes should render as 0:\n%s", got)
	}
}

type xmlSegment struct {
	Bytes  int64  `xml:"bytes,attr"`
	Number int    `xml:"number,attr"`
	ID     string `xml:",chardata"`
}

type xmlFile struct {
	Poster   string       `xml:"poster,attr"`
	Date     int64        `xml:"date,attr"`
	Subject  string       `xml:"subject,attr"`
	Groups   []string     `xml:"groups>group"`
	Segments []xmlSegment `xml:"segments>segment"`
}

type xmlNZB struct {
	XMLName xml.Name  `xml:"nzb"`
	Files   []xmlFile `xml:"file"`
}

func TestDocumentRoundTripsThroughXMLParser(t *testing.T) {
	rows := []*models.OverviewRow{
		testRow(101, `Set "file.bin" (1/3) yEnc`, "Bob", "<p1@x>", 100, 1000),
		testRow(102, `Set "file.bin" (2/3) yEnc`, "Bob", "<p2@x>", 110, 1001),
		testRow(103, `Set "file.bin" (3/3) yEnc`, "Bob", "<p3@x>", 120, 1002),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true})
	doc := BuildDocument("alt.binaries.test", FlattenFiles(res.Collections))

	var parsed xmlNZB
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("document does not parse: %v\n%s", err, doc)
	}
	if len(parsed.Files) != 1 {
		t.Fatalf("parsed files = %d, want 1", len(parsed.Files))
	}
	pf := parsed.Files[0]
	if pf.Poster != "Bob" || pf.Date != 1000 || pf.Subject != `Set "file.bin" (1/3) yEnc` {
		t.Errorf("file attrs = %q/%d/%q", pf.Poster, pf.Date, pf.Subject)
	}
	if len(pf.Groups) != 1 || pf.Groups[0] != "alt.binaries.test" {
		t.Errorf("groups = %v", pf.Groups)
	}
	if len(pf.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(pf.Segments))
	}
	for i, seg := range pf.Segments {
		if seg.Number != i+1 {
			t.Errorf("segment %d numbered %d", i, seg.Number)
		}
	}
	if pf.Segments[0].ID != "p1@x" {
		t.Errorf("segment id = %q, want angle brackets stripped", pf.Segments[0].ID)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice <a@x>", "Alice__a_x_"},
		{"simple-name_1.0", "simple-name_1.0"},
		{"", "misc"},
		{"héllo", "h_llo"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Sanitize(strings.Repeat("a", 200)); len(got) != 180 {
		t.Errorf("Sanitize long input len = %d, want 180", len(got))
	}
}

func TestWriteGroupedPerCollection(t *testing.T) {
	dir := t.TempDir()
	rows := []*models.OverviewRow{
		testRow(1, `Alpha "a.bin" (1/1)`, "A", "<a@x>", 10, 100),
		testRow(2, `Beta "b.bin" (1/1)`, "B", "<b@x>", 20, 200),
	}
	res := Assemble(rows, Options{RequireCompleteSets: true})
	paths, err := WriteGrouped(dir, "alt.binaries.test", res.Collections)
	if err != nil {
		t.Fatalf("WriteGrouped: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("wrote %d nzbs, want 2", len(paths))
	}
	wantNames := []string{"A__alpha__a.bin_.nzb", "B__beta__b.bin_.nzb"}
	for i, p := range paths {
		if filepath.Base(p) != wantNames[i] {
			t.Errorf("output %d named %q, want %q", i, filepath.Base(p), wantNames[i])
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output file: %v", err)
		}
	}
}

func TestWriteGroupedResolvesNameCollisions(t *testing.T) {
	dir := t.TempDir()
	mkColl := func(ck string, row *models.OverviewRow) *models.Collection {
		return &models.Collection{FromAddr: "A", CollectionKey: ck, Files: []*models.File{{
			CollectionKey: ck,
			FileKey:       "f",
			PartTotal:     1,
			Parts:         map[uint32]*models.OverviewRow{1: row},
		}}}
	}
	colls := []*models.Collection{
		mkColl("x y", testRow(1, "x y (1/1)", "A", "<1@x>", 1, 0)),
		mkColl("x_y", testRow(2, "x_y (1/1)", "A", "<2@x>", 1, 0)),
	}
	paths, err := WriteGrouped(dir, "g", colls)
	if err != nil {
		t.Fatalf("WriteGrouped: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("wrote %d nzbs, want 2", len(paths))
	}
	if filepath.Base(paths[0]) != "A__x_y.nzb" || filepath.Base(paths[1]) != "A__x_y-2.nzb" {
		t.Errorf("collision names = %q, %q", filepath.Base(paths[0]), filepath.Base(paths[1]))
	}
}

func TestWriteSingle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "test.nzb")
	rows := []*models.OverviewRow{
		testRow(50, `Zeta "z.bin" (1/1)`, "B", "<z@x>", 1, 0),
		testRow(10, `Alpha "a.bin" (1/1)`, "A", "<a@x>", 1, 0),
	}
	res := Assemble(rows, Options{})
	if err := WriteSingle(path, "alt.binaries.test", res.Collections); err != nil {
		t.Fatalf("WriteSingle: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing xml declaration:\n%s", content)
	}
	// lowest article number emits first, across collections
	alpha := strings.Index(content, "a.bin")
	zeta := strings.Index(content, "z.bin")
	if alpha == -1 || zeta == -1 || alpha > zeta {
		t.Errorf("file order wrong (alpha at %d, zeta at %d):\n%s", alpha, zeta, content)
	}
}
