package events

import (
	"context"

	"github.com/rs/zerolog"

	logx "github.com/charliechat-core/server/pkg/logger"
)

// Logger writes turn events as structured log lines.
type Logger struct{}

func (Logger) TurnCompleted(_ context.Context, t Turn) {
	withTurn(logx.Info(), t).
		Int("max_tokens", t.MaxTokens).
		Str("knowledge_kind", t.KnowledgeKind).
		Int("knowledge_count", t.KnowledgeCount).
		Msg("turn completed")
}

func (Logger) TurnFailed(_ context.Context, t Turn) {
	withTurn(logx.Warn(), t).Err(t.Err).Int("max_tokens", t.MaxTokens).Msg("turn failed; fallback answer returned")
}

func (Logger) DirectResponse(_ context.Context, t Turn) {
	withTurn(logx.Info(), t).Msg("turn answered by recognizer")
}

func (Logger) Clarified(_ context.Context, t Turn) {
	withTurn(logx.Info(), t).Msg("no usable question; asked for clarification")
}

func withTurn(e *zerolog.Event, t Turn) *zerolog.Event {
	e = e.Str("turn_id", t.TurnID).
		Str("session_id", t.SessionID).
		Str("path", string(t.Path)).
		Dur("duration", t.Duration)
	if t.Person != "" {
		e = e.Str("person", t.Person)
	}
	if logx.DebugEnabled() && t.Question != "" {
		e = e.Str("question", t.Question)
	}
	return e
}
