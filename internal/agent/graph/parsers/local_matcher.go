package parsers

import (
	"regexp"
	"strings"

	"github.com/charliechat-core/server/internal/agent/model"
)

var (
	possessivePattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)'s\b`)
	askAboutPattern   = regexp.MustCompile(`(?i)^\s*(?:ask|tell)\s+(?:me\s+)?about\s+([A-Za-z][A-Za-z' -]*?)\s*$`)
)

// MatchSlots is the local stand-in for the recognizer: the question is the
// trimmed text, the person comes from a known alias or a capitalised
// possessive ("Maria's skills").
func MatchSlots(text string, aliases []string) model.SlotPair {
	var pair model.SlotPair
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return pair
	}
	pair.Question = model.SlotOf(trimmed)

	lower := strings.ToLower(trimmed)
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && containsWord(lower, alias) {
			pair.Person = model.SlotOf(alias)
			return pair
		}
	}
	if m := possessivePattern.FindStringSubmatch(trimmed); m != nil {
		pair.Person = model.SlotOf(m[1])
		return pair
	}
	if m := askAboutPattern.FindStringSubmatch(trimmed); m != nil && len(strings.Fields(m[1])) <= 3 {
		// "tell me about yourself" names no one
		if name := strings.TrimSpace(m[1]); !strings.HasPrefix(strings.ToLower(name), "your") {
			pair.Person = model.SlotOf(name)
		}
	}
	return pair
}

func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		if boundary(haystack, start-1) && boundary(haystack, end) {
			return true
		}
		idx = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
