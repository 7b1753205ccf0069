package conversations

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/charliechat-core/server/internal/agent/model"
)

const (
	// HistoryCapacity bounds conversation_history; oldest entries go first.
	HistoryCapacity = 3
	// MaxStoredAnswer bounds stored answers so the echoed state stays small.
	MaxStoredAnswer = 1200
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Sanitize collapses line breaks so stored text stays single-line.
func Sanitize(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// Append pushes one exchange and drops from the front past HistoryCapacity.
// The input slice is never modified.
func Append(history []model.Exchange, question, answer string) []model.Exchange {
	next := make([]model.Exchange, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, model.Exchange{
		Question: Sanitize(question),
		Answer:   TrimAnswer(Sanitize(answer), MaxStoredAnswer),
	})
	return trimTail(next, HistoryCapacity)
}

// Clear returns an empty, non-nil history.
func Clear() []model.Exchange {
	return []model.Exchange{}
}

// Recent returns at most n trailing exchanges.
func Recent(history []model.Exchange, n int) []model.Exchange {
	return trimTail(history, n)
}

// Remember folds a successful exchange into the working state.
func Remember(state *model.SessionState, question, answer, voiceStyle string) {
	state.ConversationHistory = Append(state.ConversationHistory, question, answer)
	state.LastQuestion = Sanitize(question)
	state.LastAnswer = TrimAnswer(answer, MaxStoredAnswer)
	state.CurrentVoiceStyle = voiceStyle
}

// Forget drops the last-exchange mirror after a failed generation; history is kept.
func Forget(state *model.SessionState) {
	state.LastQuestion = ""
	state.LastAnswer = ""
}

// Reset empties the whole memory, used when a turn has no usable question.
func Reset(state *model.SessionState) {
	state.ConversationHistory = Clear()
	Forget(state)
}

// TrimAnswer shortens answer to maxLen bytes, appending "..." when cut.
func TrimAnswer(answer string, maxLen int) string {
	answer = strings.TrimSpace(answer)
	if len(answer) <= maxLen {
		return answer
	}
	cut := maxLen
	// keep the cut on a rune boundary
	for cut > 0 && !isRuneStart(answer[cut]) {
		cut--
	}
	return answer[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Encode serializes state for the client.
func Encode(state model.SessionState) (string, error) {
	if state.ConversationHistory == nil {
		state.ConversationHistory = Clear()
	}
	b, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode session state: %w", err)
	}
	return string(b), nil
}

// EncodeASCII is Encode with every non-ASCII rune written as a \uXXXX
// escape, for carriers such as HTTP headers that are not UTF-8 safe.
// Decode reads the result unchanged.
func EncodeASCII(state model.SessionState) (string, error) {
	encoded, err := Encode(state)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(encoded))
	for _, r := range encoded {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String(), nil
}

// Decode parses a client-echoed state. Histories longer than the capacity
// are trimmed so a tampered payload cannot grow the prompt.
func Decode(raw string) (*model.SessionState, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var state model.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if state.ConversationHistory == nil {
		state.ConversationHistory = Clear()
	}
	state.ConversationHistory = trimTail(state.ConversationHistory, HistoryCapacity)
	return &state, nil
}

// ====================== Helper function ======================
func trimTail(history []model.Exchange, maxTurns int) []model.Exchange {
	if maxTurns < 0 {
		maxTurns = 0
	}
	source := history
	if len(history) > maxTurns {
		source = history[len(history)-maxTurns:]
	}
	result := make([]model.Exchange, len(source))
	copy(result, source)
	return result
}
