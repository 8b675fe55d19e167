package nzb

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-while/go-nzbidx/internal/models"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE nzb PUBLIC "-//newzBin//DTD NZB 1.1//EN" "http://www.newzbin.com/DTD/nzb/nzb-1.1.dtd">` + "\n"
	nzbOpen  = `<nzb xmlns="http://www.newzbin.com/DTD/2003/nzb">` + "\n"
	nzbClose = "</nzb>\n"

	maxFilenameLen = 180
)

// Attribute values need the quote escaped on top of the text set; element
// text only the markup characters.
var (
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// BuildDocument renders one NZB document containing the given files, which
// must already be in emission order.
func BuildDocument(groupName string, files []*models.File) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(nzbOpen)
	for _, f := range files {
		writeFileElement(&b, groupName, f)
	}
	b.WriteString(nzbClose)
	return b.Bytes()
}

// writeFileElement emits one <file> with its groups and segments. Poster,
// date and subject come from the part with the lowest article number.
func writeFileElement(b *bytes.Buffer, groupName string, f *models.File) {
	earliest := f.EarliestPart()
	if earliest == nil {
		return
	}
	var date int64
	if earliest.DateUnix.Valid {
		date = earliest.DateUnix.Int64
	}
	fmt.Fprintf(b, "  <file poster=\"%s\" date=\"%d\" subject=\"%s\">\n",
		attrEscaper.Replace(earliest.FromAddr), date, attrEscaper.Replace(earliest.Subject))
	fmt.Fprintf(b, "    <groups>\n      <group>%s</group>\n    </groups>\n",
		textEscaper.Replace(groupName))
	b.WriteString("    <segments>\n")
	for _, num := range sortedParts(f) {
		row := f.Parts[num]
		var bytesLen int64
		if row.BytesLen.Valid {
			bytesLen = row.BytesLen.Int64
		}
		fmt.Fprintf(b, "      <segment bytes=\"%d\" number=\"%d\">%s</segment>\n",
			bytesLen, num, textEscaper.Replace(row.MessageIDText()))
	}
	b.WriteString("    </segments>\n  </file>\n")
}

// sortedParts returns the part numbers present in f, ascending.
func sortedParts(f *models.File) []uint32 {
	nums := make([]uint32, 0, len(f.Parts))
	for n := range f.Parts {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Sanitize maps s onto the filename alphabet [A-Za-z0-9._-], replacing
// everything else with underscores and capping the length at 180. Empty
// input becomes "misc".
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	if out == "" {
		return "misc"
	}
	return out
}

// WriteSingle writes every file of every collection into one NZB document
// at path, creating the parent directory if missing.
func WriteSingle(path, groupName string, collections []*models.Collection) error {
	files := FlattenFiles(collections)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, BuildDocument(groupName, files), 0644); err != nil {
		return fmt.Errorf("write nzb: %w", err)
	}
	log.Printf("[NZB] wrote %s: %d files", path, len(files))
	return nil
}

// WriteGrouped writes one NZB per collection into dir, named
// sanitize(poster)__sanitize(collection).nzb. Distinct collections whose
// names sanitize to the same string get -2, -3, ... suffixes in collection
// order. Returns the paths written.
func WriteGrouped(dir, groupName string, collections []*models.Collection) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	seen := make(map[string]int)
	paths := make([]string, 0, len(collections))
	for _, c := range collections {
		name := Sanitize(c.FromAddr) + "__" + Sanitize(c.CollectionKey)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		path := filepath.Join(dir, name+".nzb")
		if err := os.WriteFile(path, BuildDocument(groupName, c.Files), 0644); err != nil {
			return paths, fmt.Errorf("write nzb: %w", err)
		}
		log.Printf("[NZB] wrote %s: %d files", path, len(c.Files))
		paths = append(paths, path)
	}
	return paths, nil
}
