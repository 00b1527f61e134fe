// Package transcript normalizes raw transcripts and synthesizes lyrics search queries.
package transcript

import (
	"strings"
	"unicode"
)

// Normalize strips everything except letters, digits, and whitespace, then
// collapses whitespace runs to single spaces and trims the ends.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
