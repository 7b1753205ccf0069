package policies

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PersonNormalizer maps free-form names onto the canonical persona.
type PersonNormalizer struct {
	canonical string
	aliases   map[string]struct{}
}

// NewPersonNormalizer builds a normalizer; aliases are matched case-insensitively.
func NewPersonNormalizer(canonical string, aliases []string) *PersonNormalizer {
	canonical = strings.TrimSpace(canonical)
	n := &PersonNormalizer{
		canonical: canonical,
		aliases:   make(map[string]struct{}, len(aliases)+1),
	}
	for _, a := range aliases {
		if a = foldName(a); a != "" {
			n.aliases[a] = struct{}{}
		}
	}
	if canonical != "" {
		n.aliases[foldName(canonical)] = struct{}{}
	}
	return n
}

// Normalize returns the canonical persona for known variants, the
// title-cased input for unknown names, and the default for empty input.
func (n *PersonNormalizer) Normalize(raw string) string {
	name := foldName(raw)
	if name == "" {
		return n.canonical
	}
	if _, ok := n.aliases[name]; ok {
		return n.canonical
	}
	// "charles anything" still means the persona
	if canon := foldName(n.canonical); canon != "" && strings.HasPrefix(name, canon+" ") {
		return n.canonical
	}
	// Casers are stateful; one per call keeps Normalize safe for concurrent turns.
	return cases.Title(language.English).String(strings.Join(strings.Fields(strings.TrimSpace(raw)), " "))
}

// foldName lowercases and collapses inner whitespace.
func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
