package search

import (
	"strings"
	"unicode"
)

// Relevance scoring for step display text. Three tiers, each with its own
// score band so tiers never interleave:
//
//	300 - index   exact substring match of the whole query
//	200 - index   substring match with punctuation stripped from both sides
//	100 - gap     in-order subsequence within a bounded window
//
// A candidate scores at all only when every query token is contained in
// some word of the text.

// QueryTokens splits a query into match tokens: whitespace fields, then
// camelCase boundaries, lowercased, empties dropped. A single long token
// with a "user" prefix is treated as two tokens so queries like
// "userlogsin" still reach "User: logs in" style definitions.
func QueryTokens(query string) []string {
	var tokens []string
	for _, field := range strings.Fields(query) {
		for _, part := range splitCamel(field) {
			if p := strings.ToLower(part); p != "" {
				tokens = append(tokens, p)
			}
		}
	}
	if len(tokens) == 1 && len(tokens[0]) > 4 && strings.HasPrefix(tokens[0], "user") {
		tokens = []string{"user", tokens[0][4:]}
	}
	return tokens
}

func splitCamel(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsLower(runes[i-1]) && unicode.IsUpper(runes[i]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// words splits lowercased text at every non-alphanumeric rune.
func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !isAlnum(r) })
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Score ranks text against query. The second return value is false when
// the pair does not match at all.
func Score(text, query string) (int, bool) {
	ltext := strings.ToLower(text)
	lquery := strings.ToLower(query)

	textWords := words(ltext)
	for _, tok := range QueryTokens(query) {
		if !anyWordContains(textWords, tok) {
			return 0, false
		}
	}

	if idx := strings.Index(ltext, lquery); idx >= 0 {
		return 300 - idx, true
	}

	stext := stripNonAlnum(ltext)
	squery := stripNonAlnum(lquery)
	if idx := strings.Index(stext, squery); idx >= 0 {
		return 200 - idx, true
	}

	if window, ok := subsequenceWindow(stext, squery); ok {
		gap := window - len(squery)
		if gap <= len(squery) {
			return 100 - gap, true
		}
	}
	return 0, false
}

func anyWordContains(ws []string, tok string) bool {
	for _, w := range ws {
		if strings.Contains(w, tok) {
			return true
		}
	}
	return false
}

// subsequenceWindow scans text once left to right looking for query as an
// in-order subsequence. A candidate window opens at the first character
// matching query[0] and only resets after a full match completes, so the
// result is the window ending at the first completed match from the
// earliest viable start, kept minimal across the scan. This greedy search
// is not globally minimal for all inputs; it is kept exactly as-is so
// ranking stays reproducible.
func subsequenceWindow(text, query string) (int, bool) {
	if len(query) == 0 || len(query) > len(text) {
		return 0, false
	}
	best := -1
	start := -1
	qi := 0
	for i := 0; i < len(text); i++ {
		if text[i] != query[qi] {
			continue
		}
		if qi == 0 {
			start = i
		}
		qi++
		if qi == len(query) {
			if w := i - start + 1; best < 0 || w < best {
				best = w
			}
			qi = 0
			start = -1
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
