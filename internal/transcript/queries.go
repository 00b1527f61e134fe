package transcript

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	phraseTokens     = 8
	keywordTokens    = 6
	minTokenRunes    = 3
	minQueryRunes    = 6
	middleStartRatio = 3
)

// Queries builds ordered lyrics-search candidates from normalized text, most
// specific first: the full text, the opening phrase, a phrase starting a
// third of the way in, and a bag of the longest keywords.
//
// Results never contain duplicates or strings shorter than six characters.
func Queries(normalized string) []string {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	tokens := distinctTokens(normalized)
	candidates := []string{
		normalized,
		strings.Join(window(tokens, 0, phraseTokens), " "),
		strings.Join(window(tokens, len(tokens)/middleStartRatio, phraseTokens), " "),
		strings.Join(longest(tokens, keywordTokens), " "),
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if utf8.RuneCountInString(candidate) < minQueryRunes {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// distinctTokens keeps the first occurrence of every token longer than two runes.
func distinctTokens(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) < minTokenRunes {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}

func window(tokens []string, start int, size int) []string {
	if start < 0 || start >= len(tokens) {
		return nil
	}
	end := start + size
	if end > len(tokens) {
		end = len(tokens)
	}
	return tokens[start:end]
}

// longest returns up to n tokens ordered by descending rune length; ties keep
// their original order.
func longest(tokens []string, n int) []string {
	ranked := make([]string, len(tokens))
	copy(ranked, tokens)
	sort.SliceStable(ranked, func(i, j int) bool {
		return utf8.RuneCountInString(ranked[i]) > utf8.RuneCountInString(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
