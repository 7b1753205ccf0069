package model

import "context"

type Recognizer interface {
	// Recognize interprets text for the session. dialogState is the opaque
	// state returned by the previous recognition, or nil.
	Recognize(ctx context.Context, sessionID, text string, dialogState []byte) (*Recognition, error)
}

type Retriever interface {
	// Retrieve returns up to k ranked passages. Implementations return
	// knowledge.ErrUnavailable instead of failing when not configured.
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

type Generator interface {
	// Generate runs one completion. No retries; failures wrap generation.ErrGeneration.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}
