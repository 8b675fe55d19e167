package models

// Assembly-time structures. FileParts, Files and Collections are ephemeral,
// materialized per NZB query; only OverviewRows persist.

// FilePart links one OverviewRow into a multipart file at assembly time.
type FilePart struct {
	CollectionKey    string
	FileKey          string
	PartIndex        uint32
	PartTotal        uint32
	InferredFilename string
	Row              *OverviewRow
}

// File is a set of FileParts sharing (CollectionKey, FileKey, PartTotal).
// Parts maps part index to the first row observed for that index.
type File struct {
	CollectionKey string
	FileKey       string
	PartTotal     uint32
	Parts         map[uint32]*OverviewRow
}

// Complete reports whether the observed part set is exactly {1..PartTotal}.
func (f *File) Complete() bool {
	if f.PartTotal == 0 {
		return false
	}
	if uint32(len(f.Parts)) != f.PartTotal {
		return false
	}
	for i := uint32(1); i <= f.PartTotal; i++ {
		if _, ok := f.Parts[i]; !ok {
			return false
		}
	}
	return true
}

// MinArticleNum returns the lowest article number among the parts, 0 if empty.
func (f *File) MinArticleNum() uint64 {
	var min uint64
	for _, row := range f.Parts {
		if min == 0 || row.ArticleNum < min {
			min = row.ArticleNum
		}
	}
	return min
}

// EarliestPart returns the part with the lowest article number, nil if empty.
func (f *File) EarliestPart() *OverviewRow {
	var earliest *OverviewRow
	for _, row := range f.Parts {
		if earliest == nil || row.ArticleNum < earliest.ArticleNum {
			earliest = row
		}
	}
	return earliest
}

// Collection is a set of Files sharing (FromAddr, CollectionKey).
type Collection struct {
	FromAddr      string
	CollectionKey string
	Files         []*File
}
