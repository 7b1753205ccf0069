package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/charliechat-core/server/internal/agent/model"
)

// Turn describes one finished turn.
type Turn struct {
	TurnID    string
	SessionID string
	Path      model.TurnPath
	Person    string
	Question  string
	// MaxTokens is the length budget handed to generation; 0 when not generated.
	MaxTokens      int
	KnowledgeKind  string
	KnowledgeCount int
	Duration       time.Duration
	Err            error
}

// Emitter receives turn outcomes. Implementations must not block the turn.
type Emitter interface {
	TurnCompleted(ctx context.Context, t Turn)
	TurnFailed(ctx context.Context, t Turn)
	DirectResponse(ctx context.Context, t Turn)
	Clarified(ctx context.Context, t Turn)
}

// NewTurnID returns a fresh correlation id for a turn.
func NewTurnID() string {
	return uuid.NewString()
}

// Nop discards all events.
type Nop struct{}

func (Nop) TurnCompleted(context.Context, Turn)  {}
func (Nop) TurnFailed(context.Context, Turn)     {}
func (Nop) DirectResponse(context.Context, Turn) {}
func (Nop) Clarified(context.Context, Turn)      {}

// Multi fans every event out to each emitter in order.
type Multi []Emitter

func (m Multi) TurnCompleted(ctx context.Context, t Turn) {
	for _, e := range m {
		e.TurnCompleted(ctx, t)
	}
}

func (m Multi) TurnFailed(ctx context.Context, t Turn) {
	for _, e := range m {
		e.TurnFailed(ctx, t)
	}
}

func (m Multi) DirectResponse(ctx context.Context, t Turn) {
	for _, e := range m {
		e.DirectResponse(ctx, t)
	}
}

func (m Multi) Clarified(ctx context.Context, t Turn) {
	for _, e := range m {
		e.Clarified(ctx, t)
	}
}
