package policies

import "strings"

// Token budgets per question class.
const (
	GreetingTokens    = 150
	FactTokens        = 700
	InterrogateTokens = 600
	NarrativeTokens   = 700
	DefaultTokens     = 500
)

// LengthClass names the lexical class a question fell into.
type LengthClass string

const (
	ClassGreeting    LengthClass = "greeting"
	ClassFact        LengthClass = "fact"
	ClassInterrogate LengthClass = "interrogative"
	ClassNarrative   LengthClass = "narrative"
	ClassDefault     LengthClass = "default"
)

var (
	greetings = set(
		"hi", "hello", "hey", "thanks", "thank", "thank you", "yes", "no",
		"ok", "okay", "sure", "yep", "nope", "bye",
	)
	factKeywords = []string{
		"education", "degree", "school", "university", "college",
		"skills", "certifications", "certificate", "cert",
	}
	interrogatives  = set("what", "how", "when", "where", "why", "which", "who")
	narrativePhrase = []string{
		"tell me about yourself", "background", "experience", "career",
		"overview", "story", "history", "everything",
	}
)

// ClassifyLength returns the first matching class in priority order.
func ClassifyLength(question string) LengthClass {
	q := normalize(question)
	bare := strings.TrimRight(q, "!.?")
	if _, ok := greetings[bare]; ok {
		return ClassGreeting
	}
	if containsAny(q, factKeywords) {
		return ClassFact
	}
	if hasWord(q, interrogatives) {
		return ClassInterrogate
	}
	if containsAny(q, narrativePhrase) {
		return ClassNarrative
	}
	return ClassDefault
}

// BudgetFor maps a class to its token budget.
func BudgetFor(c LengthClass) int {
	switch c {
	case ClassGreeting:
		return GreetingTokens
	case ClassFact:
		return FactTokens
	case ClassInterrogate:
		return InterrogateTokens
	case ClassNarrative:
		return NarrativeTokens
	default:
		return DefaultTokens
	}
}

// TargetTokens returns min(classified budget, maxCap). A non-positive cap
// means uncapped.
func TargetTokens(question string, maxCap int) int {
	v := BudgetFor(ClassifyLength(question))
	if maxCap > 0 && v > maxCap {
		return maxCap
	}
	return v
}
