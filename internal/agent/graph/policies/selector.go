package policies

import (
	"regexp"
	"sort"
	"strings"

	logx "github.com/charliechat-core/server/pkg/logger"
)

// QuestionKind drives how much knowledge a question gets.
type QuestionKind string

const (
	KindBackground QuestionKind = "background"
	KindSpecific   QuestionKind = "specific"
	KindGeneral    QuestionKind = "general"
)

const (
	// DefaultMaxContextChars caps the assembled knowledge block.
	DefaultMaxContextChars = 1500
	// summaryFallbackChars is the prefix kept for passages without bullets.
	summaryFallbackChars = 200
	maxKeyPoints         = 3
)

var (
	backgroundKeywords = []string{
		"background", "experience", "career", "tell me about yourself",
		"overview", "history", "story",
	}
	specificKeywords = []string{
		"education", "skills", "certifications", "degree", "school",
		"what is", "what are", "list", "show me",
	}

	yearPattern   = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	bulletPattern = regexp.MustCompile(`(?m)^\s*[-•*]\s*(\S[^\n]*)$`)
)

// ClassifyQuestion places a question into one knowledge bucket.
func ClassifyQuestion(question string) QuestionKind {
	q := normalize(question)
	switch {
	case containsAny(q, backgroundKeywords):
		return KindBackground
	case containsAny(q, specificKeywords):
		return KindSpecific
	default:
		return KindGeneral
	}
}

// passagesFor returns (kept, recommended fetch) for a kind.
func passagesFor(k QuestionKind) int {
	if k == KindBackground {
		return 3
	}
	return 2
}

// SelectorConfig tunes the knowledge assembly step.
type SelectorConfig struct {
	// Summarize enables the "[years] point; point" reduction.
	Summarize bool
	// MaxChars caps the block length; zero uses DefaultMaxContextChars.
	MaxChars int
	// MaxTokens caps the block in model tokens; zero disables the check.
	MaxTokens int
	Counter   TokenCounter
}

// ContextSelector decides how many passages to fetch and keep, and renders them.
type ContextSelector struct {
	cfg SelectorConfig
}

func NewContextSelector(cfg SelectorConfig) *ContextSelector {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxContextChars
	}
	if cfg.Counter == nil {
		cfg.Counter = EstimateCounter{}
	}
	return &ContextSelector{cfg: cfg}
}

// RecommendFetch is the passage count to ask the retrieval backend for.
func (s *ContextSelector) RecommendFetch(question string) int {
	return passagesFor(ClassifyQuestion(question))
}

// Select keeps the leading passages appropriate for the question and
// returns them with the recommended fetch count.
func (s *ContextSelector) Select(question string, passages []string) ([]string, int) {
	kind := ClassifyQuestion(question)
	n := passagesFor(kind)

	kept := make([]string, 0, n)
	for _, p := range passages {
		if len(kept) == n {
			break
		}
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}

	logx.Debug().
		Str("component", "context_selector").
		Str("kind", string(kind)).
		Int("available", len(passages)).
		Int("selected", len(kept)).
		Msg("knowledge passages selected")
	return kept, n
}

// Assemble renders selected passages into the knowledge block, summarizing
// when enabled and enforcing the char and token caps. Returns "" for no content.
func (s *ContextSelector) Assemble(passages []string) string {
	if len(passages) == 0 {
		return ""
	}
	var block string
	if s.cfg.Summarize {
		block = Summarize(passages)
	} else {
		block = strings.Join(passages, "\n\n")
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return ""
	}

	cut := false
	if len(block) > s.cfg.MaxChars {
		block = truncateRunes(block, s.cfg.MaxChars)
		cut = true
	}
	if s.cfg.MaxTokens > 0 && s.cfg.Counter.Count(block) > s.cfg.MaxTokens {
		block = s.cfg.Counter.Truncate(block, s.cfg.MaxTokens)
		cut = true
	}
	if cut {
		block += "..."
	}
	return block
}

// Summarize reduces each passage to "[date-range] point; point; point".
func Summarize(passages []string) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, summarizePassage(p))
	}
	return strings.Join(parts, "\n\n")
}

func summarizePassage(p string) string {
	dateRange := "Recent"
	if years := yearPattern.FindAllString(p, -1); len(years) > 0 {
		sort.Strings(years)
		if first, last := years[0], years[len(years)-1]; first != last {
			dateRange = first + "-" + last
		} else {
			dateRange = first
		}
	}

	matches := bulletPattern.FindAllStringSubmatch(p, -1)
	if len(matches) == 0 {
		body := strings.TrimSpace(p)
		if len(body) > summaryFallbackChars {
			body = truncateRunes(body, summaryFallbackChars) + "..."
		}
		return "[" + dateRange + "] " + body
	}
	points := make([]string, 0, maxKeyPoints)
	for _, m := range matches {
		if len(points) == maxKeyPoints {
			break
		}
		points = append(points, strings.TrimSpace(m[1]))
	}
	return "[" + dateRange + "] " + strings.Join(points, "; ")
}

// truncateRunes cuts s to at most maxBytes bytes on a rune boundary.
func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
