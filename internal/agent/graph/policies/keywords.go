package policies

import (
	"strings"
	"unicode"
)

// normalize lowercases and trims the question for keyword tests.
func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// containsAny reports whether any phrase occurs as a substring of q.
func containsAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// hasWord reports whether q contains any of words as a whole word.
// Apostrophes split words, so "what's" yields "what".
func hasWord(q string, words map[string]struct{}) bool {
	for _, w := range strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
