package model

import "encoding/json"

// RecognitionStatus is the recognizer's explicit verdict on its own output.
type RecognitionStatus string

const (
	RecognitionOK    RecognitionStatus = "ok"
	RecognitionError RecognitionStatus = "error"
	// RecognitionUnavailable means the recognizer could not be reached;
	// the turn continues on the generative path with the raw text.
	RecognitionUnavailable RecognitionStatus = "unavailable"
)

// FallbackIntent is the intent name a recognizer reports when it understood nothing.
const FallbackIntent = "FallbackIntent"

// Slot is an optional extracted value. Found is false when the recognizer
// did not produce the slot at all.
type Slot struct {
	Value string
	Found bool
}

// SlotOf builds a found slot.
func SlotOf(v string) Slot {
	return Slot{Value: v, Found: true}
}

// Present reports whether the slot carries usable text.
func (s Slot) Present() bool {
	return s.Found && s.Value != ""
}

// SlotPair is the (person, question) pair the turn needs.
type SlotPair struct {
	Person   Slot
	Question Slot
}

// Interpretation is one ranked intent hypothesis.
type Interpretation struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Recognition is the typed recognizer result.
type Recognition struct {
	Status          RecognitionStatus
	DirectMessages  []string
	Slots           SlotPair
	Interpretations []Interpretation
	// DialogState is the recognizer's opaque state to echo next turn.
	DialogState json.RawMessage
}

// TopIntent returns the highest-ranked intent name, or "".
func (r *Recognition) TopIntent() string {
	if r == nil || len(r.Interpretations) == 0 {
		return ""
	}
	return r.Interpretations[0].Intent
}

// Passage is one retrieved knowledge snippet.
type Passage struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// TokenUsage is provider-neutral token accounting for one generation call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
