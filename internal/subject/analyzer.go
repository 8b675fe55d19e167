// Package subject decomposes Usenet subject lines into the keys used to
// assemble multipart binary posts: a collection key for grouping, a file
// key for bucketing parts, and the (part, total) counters.
package subject

import (
	"regexp"
	"strconv"
	"strings"
)

// Part counters appear as "(3/25)", "[3/25]", "{3/25}" or textual
// "part 3 of 25". The remaining patterns cover the noise posters attach
// around them: yEnc tags, byte-size annotations, per-set file counters and
// multi-volume archive suffixes.
var (
	partMarkerRe   = regexp.MustCompile(`[(\[{](\d+)/(\d+)[)\]}]`)
	partTextRe     = regexp.MustCompile(`(?i)\bpart\s+(\d+)\s+of\s+(\d+)\b`)
	quotedRe       = regexp.MustCompile(`"([^"]+)"`)
	filenameRe     = regexp.MustCompile(`[A-Za-z0-9._-]+\.[A-Za-z0-9]{2,4}`)
	yencRe         = regexp.MustCompile(`(?i)\byenc\b`)
	trailingSizeRe = regexp.MustCompile(`\(\d+\)\s*$`)
	fileOfRe       = regexp.MustCompile(`(?i)\bfile\s*\d+\s+of\s+\d+\b`)
	volumeRe       = regexp.MustCompile(`(?i)\.(part\d+|r\d+|vol\d+\+\d+)$`)
	extensionRe    = regexp.MustCompile(`\.[A-Za-z0-9]{2,4}$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Analysis is the decomposition of one subject line. Subjects without a
// part counter analyze as part 1 of 1, a single-part post.
type Analysis struct {
	CollectionKey    string
	FileKey          string
	PartIndex        uint32
	PartTotal        uint32
	InferredFilename string
}

// Analyze decomposes a subject line. Pure and deterministic: rows of the
// same post always land in the same buckets no matter the fetch order.
func Analyze(subj string) Analysis {
	idx, total, markerStart, markerEnd := findPartMarker(subj)
	if total == 0 {
		// no part counter: a single-part post
		idx, total = 1, 1
	}
	filename := inferFilename(subj)

	// The file key tells the parts of one file apart from its siblings in
	// the set, so only the chosen counter is removed: a leftmost file
	// counter like "[2/20]" stays and keeps sibling files distinct.
	fileKey := filename
	if fileKey == "" {
		fileKey = subj
		if markerStart >= 0 {
			fileKey = subj[:markerStart] + subj[markerEnd:]
		}
		fileKey = strings.TrimSpace(whitespaceRe.ReplaceAllString(fileKey, " "))
		if fileKey == "" {
			fileKey = subj
		}
	}

	return Analysis{
		CollectionKey:    CollectionKey(subj),
		FileKey:          fileKey,
		PartIndex:        idx,
		PartTotal:        total,
		InferredFilename: filename,
	}
}

// findPartMarker returns the part counter and its byte range in the
// subject. Bracketed counters win over the textual form; among several the
// rightmost is taken, as left-hand counters usually number files within a
// set rather than parts within a file.
func findPartMarker(subj string) (idx, total uint32, start, end int) {
	for _, re := range []*regexp.Regexp{partMarkerRe, partTextRe} {
		matches := re.FindAllStringSubmatchIndex(subj, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			m := matches[i]
			n, err1 := strconv.ParseUint(subj[m[2]:m[3]], 10, 32)
			t, err2 := strconv.ParseUint(subj[m[4]:m[5]], 10, 32)
			if err1 != nil || err2 != nil || n == 0 || t == 0 {
				continue
			}
			return uint32(n), uint32(t), m[0], m[1]
		}
	}
	return 0, 0, -1, -1
}

// inferFilename picks the longest quoted token, falling back to the
// rightmost bare token that looks like a filename.
func inferFilename(subj string) string {
	var longest string
	for _, m := range quotedRe.FindAllStringSubmatch(subj, -1) {
		token := strings.TrimSpace(m[1])
		if len(token) > len(longest) {
			longest = token
		}
	}
	if longest != "" {
		return longest
	}
	tokens := filenameRe.FindAllString(subj, -1)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// CollectionKey normalizes a subject into the key grouping the files of one
// logical post. Everything that varies across the files of a collection is
// stripped: part counters, yEnc tags, trailing size annotations, file
// counters and volume/extension suffixes. Whitespace is collapsed and the
// result lowercased. Subjects that normalize to nothing keep their verbatim
// form so they still group with their own reposts.
func CollectionKey(subj string) string {
	s := yencRe.ReplaceAllString(subj, "")
	s = strings.TrimRight(s, " \t")
	for trailingSizeRe.MatchString(s) {
		s = trailingSizeRe.ReplaceAllString(s, "")
		s = strings.TrimRight(s, " \t")
	}
	s = partMarkerRe.ReplaceAllString(s, "")
	s = partTextRe.ReplaceAllString(s, "")
	s = fileOfRe.ReplaceAllString(s, "")
	s = stripVolumeSuffixes(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return subj
	}
	return s
}

// stripVolumeSuffixes peels ".part01", ".r05", ".vol000+01" and plain
// extensions off the tail, so "name.part01.rar" and "name.part02.rar"
// normalize to the same base.
func stripVolumeSuffixes(s string) string {
	for {
		switch {
		case volumeRe.MatchString(s):
			s = volumeRe.ReplaceAllString(s, "")
		case extensionRe.MatchString(s):
			s = extensionRe.ReplaceAllString(s, "")
		default:
			return s
		}
	}
}
