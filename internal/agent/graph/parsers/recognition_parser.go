package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen      = 128 * 1024 // 128KB
	maxMessages        = 20
	maxInterpretations = 10
	maxSlotLen         = 4 * 1024
	maxErrSnippet      = 200
)

const (
	slotPerson   = "person"
	slotQuestion = "question"

	contentTypePlainText = "PlainText"
)

// errorIndicators are phrases recognizers use when they failed but still
// produced a message. Secondary to the explicit status field.
var errorIndicators = []string{
	"something went wrong while answering that",
	"try again in a moment",
	"error",
	"failed",
	"hmm, something went wrong",
}

type rawMessage struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type rawSlotValue struct {
	OriginalValue    string `json:"originalValue"`
	InterpretedValue string `json:"interpretedValue"`
}

type rawSlot struct {
	Value *rawSlotValue `json:"value"`
}

type rawInterpretation struct {
	Intent struct {
		Name  string              `json:"name"`
		Slots map[string]*rawSlot `json:"slots"`
	} `json:"intent"`
	NLUConfidence *struct {
		Score float64 `json:"score"`
	} `json:"nluConfidence"`
}

type rawRecognition struct {
	Status          string              `json:"status"`
	Messages        []rawMessage        `json:"messages"`
	SessionState    json.RawMessage     `json:"sessionState"`
	Interpretations []rawInterpretation `json:"interpretations"`
}

// ParseRecognition maps a recognizer JSON payload onto the typed
// Recognition. Missing slots come back with Found=false rather than
// defaulting silently.
func ParseRecognition(content []byte) (rec *model.Recognition, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "recognition_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("recognition parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			rec = nil
		}
	}()

	if len(content) > maxContentLen {
		return nil, fmt.Errorf("recognition payload too large: %d bytes", len(content))
	}
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, fmt.Errorf("empty recognition payload")
	}

	var raw rawRecognition
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("decode recognition %q: %w", safeSnippet(string(content)), err)
	}

	rec = &model.Recognition{
		Status:      parseStatus(raw.Status),
		DialogState: compactState(raw.SessionState),
	}

	for i, m := range raw.Messages {
		if i >= maxMessages {
			logx.Warn().Str("component", "recognition_parser").Int("max_messages", maxMessages).
				Msg("recognizer messages capped")
			break
		}
		if m.ContentType != contentTypePlainText {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" || !utf8.ValidString(text) {
			continue
		}
		rec.DirectMessages = append(rec.DirectMessages, text)
	}

	for i, in := range raw.Interpretations {
		if i >= maxInterpretations {
			break
		}
		conf := 0.0
		if in.NLUConfidence != nil {
			conf = in.NLUConfidence.Score
		}
		rec.Interpretations = append(rec.Interpretations, model.Interpretation{
			Intent:     strings.TrimSpace(in.Intent.Name),
			Confidence: conf,
		})
		// the highest-ranked interpretation that carries a slot wins
		if !rec.Slots.Person.Found {
			rec.Slots.Person = slotValue(in.Intent.Slots, slotPerson)
		}
		if !rec.Slots.Question.Found {
			rec.Slots.Question = slotValue(in.Intent.Slots, slotQuestion)
		}
	}

	return rec, nil
}

func parseStatus(s string) model.RecognitionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(model.RecognitionError):
		return model.RecognitionError
	default:
		return model.RecognitionOK
	}
}

func compactState(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return buf.Bytes()
}

func slotValue(slots map[string]*rawSlot, name string) model.Slot {
	s, ok := slots[name]
	if !ok || s == nil || s.Value == nil {
		return model.Slot{}
	}
	v := strings.TrimSpace(s.Value.OriginalValue)
	if v == "" {
		v = strings.TrimSpace(s.Value.InterpretedValue)
	}
	if v == "" || len(v) > maxSlotLen || !utf8.ValidString(v) {
		return model.Slot{}
	}
	return model.SlotOf(v)
}

// DirectText joins the direct messages into one reply.
func DirectText(rec *model.Recognition) string {
	if rec == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(rec.DirectMessages, " "))
}

// IsErrorText reports whether a direct message reads like a recognizer failure.
func IsErrorText(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range errorIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// UsableDirectResponse returns the direct reply when the recognizer fully
// handled the turn: status ok, not the fallback intent, non-empty text that
// does not read like an error.
func UsableDirectResponse(rec *model.Recognition) (string, bool) {
	if rec == nil || rec.Status != model.RecognitionOK {
		return "", false
	}
	if rec.TopIntent() == model.FallbackIntent {
		return "", false
	}
	text := DirectText(rec)
	if text == "" || IsErrorText(text) {
		return "", false
	}
	return text, true
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
