package tabular

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical key form of a header or candidate name:
// NFC-composed, lowercased, with every whitespace rune and underscore removed.
//
// "Group Name", "group_name" and "GROUPNAME" all normalize to "groupname".
// NFC keeps "Sì" typed with a combining accent equal to the precomposed form.
func Normalize(name string) string {
	s := norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold returns the comparison form of a cell value: trimmed, NFC-composed and
// lowercased. Used for identity keys and boolean literals.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
