package models

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CleanUTF8 decodes MIME encoded-words (RFC 2047) and converts the result to
// valid UTF-8. Usenet overview fields are frequently mis-encoded: raw Latin-1
// bytes are tried as ISO-8859-1 first, anything still invalid is replaced.
func CleanUTF8(text string) string {
	if text == "" {
		return ""
	}

	decoder := mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(text)
	if err != nil {
		decoded = text
	}

	if utf8.ValidString(decoded) {
		return decoded
	}

	// Latin-1 to UTF-8: every byte sequence is valid ISO-8859-1
	latinDecoder := charmap.ISO8859_1.NewDecoder()
	result, _, err := transform.String(latinDecoder, decoded)
	if err != nil {
		return strings.ToValidUTF8(decoded, "�")
	}
	return result
}
