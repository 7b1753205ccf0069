package nodes

import (
	"strings"
	"time"

	"github.com/charliechat-core/server/internal/agent/events"
	"github.com/charliechat-core/server/internal/agent/model"
)

// Node names of the turn graph.
const (
	NodeRecognize       = "Recognize"
	NodeDirectResponse  = "DirectResponse"
	NodeResolveQuestion = "ResolveQuestion"
	NodeClarify         = "Clarify"
	NodeComposePrompt   = "ComposePrompt"
	NodeGenerate        = "Generate"
)

// resolveQuestion prefers the recognizer's question slot, then the raw text.
func resolveQuestion(rec *model.Recognition, raw string) string {
	if rec != nil && rec.Slots.Question.Present() {
		if q := strings.TrimSpace(rec.Slots.Question.Value); q != "" {
			return q
		}
	}
	return strings.TrimSpace(raw)
}

// resolveVoice lets the request override the stored style, then the default.
func resolveVoice(requested, stored, fallback string) string {
	if v := strings.ToLower(strings.TrimSpace(requested)); v != "" {
		return v
	}
	if v := strings.ToLower(strings.TrimSpace(stored)); v != "" {
		return v
	}
	return strings.ToLower(strings.TrimSpace(fallback))
}

func turnEvent(s *model.TurnState, path model.TurnPath) events.Turn {
	var d time.Duration
	if !s.Started.IsZero() {
		d = time.Since(s.Started)
	}
	return events.Turn{
		TurnID:    s.TurnID,
		SessionID: s.SessionID,
		Path:      path,
		Question:  s.RawText,
		Duration:  d,
	}
}
