// Package nzb assembles stored overview rows into NZB documents.
package nzb

import (
	"log"
	"sort"
	"strings"

	"github.com/go-while/go-nzbidx/internal/models"
	"github.com/go-while/go-nzbidx/internal/subject"
)

// Options control which files make it into the output.
type Options struct {
	// RequireCompleteSets drops files whose part set is not exactly
	// {1..part_total}.
	RequireCompleteSets bool
	// SkipExe drops files whose file key ends in ".exe".
	SkipExe bool
}

// Result holds the assembled collections plus drop counters.
type Result struct {
	Collections []*models.Collection

	Files              int
	Segments           int
	DroppedIncomplete  int
	DroppedExe         int
	DroppedNoMessageID int
}

type fileBucket struct {
	collection string
	file       string
	total      uint32
}

type collectionBucket struct {
	from       string
	collection string
}

// analyzePart derives the assembly keys for one row from its subject line.
func analyzePart(row *models.OverviewRow) *models.FilePart {
	a := subject.Analyze(row.Subject)
	return &models.FilePart{
		CollectionKey:    a.CollectionKey,
		FileKey:          a.FileKey,
		PartIndex:        a.PartIndex,
		PartTotal:        a.PartTotal,
		InferredFilename: a.InferredFilename,
		Row:              row,
	}
}

// Assemble buckets rows into files keyed by (collection key, file key, part
// total) and files into collections keyed by (poster, collection key). The
// first row seen for a part wins; later reposts of the same part are
// ignored. Result ordering is deterministic for a fixed input set.
func Assemble(rows []*models.OverviewRow, opts Options) *Result {
	res := &Result{}

	files := make(map[fileBucket]*models.File)
	for _, row := range rows {
		if strings.TrimSpace(row.MessageID) == "" {
			res.DroppedNoMessageID++
			continue
		}
		p := analyzePart(row)
		k := fileBucket{p.CollectionKey, p.FileKey, p.PartTotal}
		f := files[k]
		if f == nil {
			f = &models.File{
				CollectionKey: p.CollectionKey,
				FileKey:       p.FileKey,
				PartTotal:     p.PartTotal,
				Parts:         make(map[uint32]*models.OverviewRow),
			}
			files[k] = f
		}
		if _, dup := f.Parts[p.PartIndex]; !dup {
			f.Parts[p.PartIndex] = p.Row
		}
	}

	collections := make(map[collectionBucket]*models.Collection)
	for _, f := range files {
		if opts.SkipExe && strings.HasSuffix(strings.ToLower(f.FileKey), ".exe") {
			res.DroppedExe++
			continue
		}
		if opts.RequireCompleteSets && !f.Complete() {
			log.Printf("[NZB] dropping incomplete file %q: missing parts %v",
				f.FileKey, missingParts(f))
			res.DroppedIncomplete++
			continue
		}
		earliest := f.EarliestPart()
		if earliest == nil {
			continue
		}
		k := collectionBucket{earliest.FromAddr, f.CollectionKey}
		c := collections[k]
		if c == nil {
			c = &models.Collection{FromAddr: k.from, CollectionKey: k.collection}
			collections[k] = c
		}
		c.Files = append(c.Files, f)
		res.Files++
		res.Segments += len(f.Parts)
	}

	res.Collections = make([]*models.Collection, 0, len(collections))
	for _, c := range collections {
		sortFiles(c.Files)
		res.Collections = append(res.Collections, c)
	}
	sort.Slice(res.Collections, func(i, j int) bool {
		a, b := res.Collections[i], res.Collections[j]
		if a.FromAddr != b.FromAddr {
			return a.FromAddr < b.FromAddr
		}
		return a.CollectionKey < b.CollectionKey
	})
	return res
}

// FlattenFiles merges the files of all collections into one list in
// emission order.
func FlattenFiles(collections []*models.Collection) []*models.File {
	var files []*models.File
	for _, c := range collections {
		files = append(files, c.Files...)
	}
	sortFiles(files)
	return files
}

// sortFiles orders files by (lowest article number, file key).
func sortFiles(files []*models.File) {
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if an, bn := a.MinArticleNum(), b.MinArticleNum(); an != bn {
			return an < bn
		}
		return a.FileKey < b.FileKey
	})
}

// missingParts lists the part numbers absent from {1..PartTotal}.
func missingParts(f *models.File) []uint32 {
	var missing []uint32
	for i := uint32(1); i <= f.PartTotal; i++ {
		if _, ok := f.Parts[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}
