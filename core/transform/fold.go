package transform

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxKeyLength is the longest identifier the index engines accept.
const DefaultMaxKeyLength = 128

// Fold lower-cases s and removes diacritics: "Seção Única" → "secao unica".
// Compatibility forms are decomposed too, so "1º" folds to "1o".
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// MakeID derives the document identifier from its reference and sequence
// position. The reference part is truncated so the result fits maxLen; the
// "_<seq>" suffix is always kept, which keeps identifiers unique.
func MakeID(reference string, seq, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxKeyLength
	}
	suffix := "_" + strconv.Itoa(seq)
	base := slug(reference)
	if base == "" {
		base = "doc"
	}
	if limit := maxLen - len(suffix); len(base) > limit {
		if limit < 0 {
			limit = 0
		}
		base = strings.TrimRight(base[:limit], "_")
	}
	return base + suffix
}

// slug keeps ASCII letters and digits and collapses everything else to "_".
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range Fold(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
