package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charliechat-core/server/internal/agent/graph/parsers"
	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// ErrUnavailable is returned when the recognizer cannot be reached or
// answers with something other than a recognition.
var ErrUnavailable = errors.New("recognizer unavailable")

const maxResponseBytes = 256 * 1024

type recognizeRequest struct {
	SessionID    string          `json:"sessionId"`
	Text         string          `json:"text"`
	SessionState json.RawMessage `json:"sessionState,omitempty"`
}

// HTTPRecognizer posts text to an NLU service and parses its reply.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRecognizer builds a client for cfg.Endpoint.
func NewHTTPRecognizer(cfg model.RecognizerConfig) *HTTPRecognizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRecognizer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

var _ model.Recognizer = (*HTTPRecognizer)(nil)

func (r *HTTPRecognizer) Recognize(ctx context.Context, sessionID, text string, dialogState []byte) (*model.Recognition, error) {
	body, err := json.Marshal(recognizeRequest{
		SessionID:    sessionID,
		Text:         text,
		SessionState: json.RawMessage(bytes.TrimSpace(dialogState)),
	})
	if err != nil {
		return nil, fmt.Errorf("encode recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errx.WrapUpstream("recognizer", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errx.WrapUpstream("recognizer", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errx.WrapUpstream("recognizer", fmt.Errorf("%w: read body: %v", ErrUnavailable, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logx.Warn().Str("component", "recognizer").Int("status", resp.StatusCode).
			Str("session_id", sessionID).Msg("recognizer returned non-2xx")
		return nil, errx.WrapUpstream("recognizer", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	}

	rec, err := parsers.ParseRecognition(raw)
	if err != nil {
		return nil, errx.WrapUpstream("recognizer", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return rec, nil
}

// LocalRecognizer extracts slots with the built-in pattern matcher. It never
// produces direct responses.
type LocalRecognizer struct {
	aliases []string
}

func NewLocalRecognizer(aliases []string) *LocalRecognizer {
	return &LocalRecognizer{aliases: aliases}
}

var _ model.Recognizer = (*LocalRecognizer)(nil)

func (l *LocalRecognizer) Recognize(_ context.Context, _ string, text string, dialogState []byte) (*model.Recognition, error) {
	rec := &model.Recognition{
		Status: model.RecognitionOK,
		Slots:  parsers.MatchSlots(text, l.aliases),
	}
	if len(dialogState) > 0 {
		rec.DialogState = append(json.RawMessage(nil), dialogState...)
	}
	return rec, nil
}

// New picks the HTTP recognizer when an endpoint is configured and the
// local matcher otherwise.
func New(cfg model.RecognizerConfig, aliases []string) model.Recognizer {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		logx.Info().Str("component", "recognizer").Msg("no recognizer endpoint; using local pattern matcher")
		return NewLocalRecognizer(aliases)
	}
	return NewHTTPRecognizer(cfg)
}
