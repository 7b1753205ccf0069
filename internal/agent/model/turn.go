package model

import "time"

// TurnInput is one inbound user message.
type TurnInput struct {
	SessionID  string
	Text       string
	PriorState *SessionState
	// VoiceStyle is the explicit choice for this request; empty means none.
	VoiceStyle string
}

// TurnOutput is the answer plus the state the caller must echo next turn.
type TurnOutput struct {
	Answer string
	State  SessionState
	// Path records which branch produced the answer.
	Path TurnPath
}

type TurnPath string

const (
	PathDirect     TurnPath = "direct"
	PathClarify    TurnPath = "clarify"
	PathGenerated  TurnPath = "generated"
	PathGenFailure TurnPath = "generation_failed"
)

// TurnState stores per-invocation state for the turn graph.
// Registered as graph local state via compose.WithGenLocalState; only touched
// inside state handlers or compose.ProcessState.
type TurnState struct {
	TurnID     string
	SessionID  string
	RawText    string
	VoiceStyle string
	Started    time.Time

	// Prior is the borrowed caller state; never mutated.
	Prior SessionState
	// Working is the private copy folded back into TurnOutput.
	Working SessionState

	Recognition *Recognition
}

// TurnPlan is the resolved input to prompt composition.
type TurnPlan struct {
	Person     string
	Question   string
	VoiceStyle string
	Clarify    bool
}

// GenerationRequest is a fully composed prompt ready to execute.
type GenerationRequest struct {
	Plan      TurnPlan
	Prompt    string
	MaxTokens int
	// KnowledgeKind and KnowledgeCount describe the selected passages, for logs.
	KnowledgeKind  string
	KnowledgeCount int
}
