package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/charliechat-core/server/internal/agent/graph/conversations"
	"github.com/charliechat-core/server/internal/agent/model"
	logx "github.com/charliechat-core/server/pkg/logger"
)

//go:embed template/persona_prompt.txt
var defaultPersonaPrompt string

// HistoryTurns is how many past exchanges are shown in the prompt.
const HistoryTurns = 2

// Placeholders available to a full-template override.
const (
	placeholderPerson   = "person"
	placeholderQuestion = "question"
	placeholderContext  = "context"
	placeholderVoice    = "voice_instructions"
	placeholderHistory  = "history"
	placeholderKnow     = "knowledge"
)

// Input is everything the compositor layers into one prompt.
type Input struct {
	Person     string
	Question   string
	State      model.SessionState
	VoiceStyle string
	// Knowledge is the assembled knowledge block; "" omits the section.
	Knowledge string
}

// Compositor renders generation prompts, either from the built-in layered
// template or from a full override with {person}/{question}/{context}
// style placeholders.
type Compositor struct {
	override string
}

// NewCompositor builds a compositor. An empty override selects the built-in template.
func NewCompositor(override string) *Compositor {
	return &Compositor{override: strings.TrimSpace(override)}
}

// Compose renders the prompt for one turn.
func (c *Compositor) Compose(ctx context.Context, in Input) (string, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "PersonaPrompt",
		Type:      "Compositor",
		Component: components.ComponentOfPrompt,
	})
	if c.override != "" {
		out, err := c.renderOverride(ctx, in)
		if err == nil {
			return out, nil
		}
		logx.Warn().Err(err).Str("component", "prompt_compositor").
			Msg("prompt template override failed; using built-in template")
	}
	return c.renderDefault(ctx, in)
}

type historyLine struct {
	Question string
	Answer   string
}

func recentHistory(state model.SessionState) []historyLine {
	recent := conversations.Recent(state.ConversationHistory, HistoryTurns)
	lines := make([]historyLine, 0, len(recent))
	for _, e := range recent {
		q, a := strings.TrimSpace(e.Question), strings.TrimSpace(e.Answer)
		if q == "" && a == "" {
			continue
		}
		lines = append(lines, historyLine{Question: q, Answer: a})
	}
	return lines
}

func (c *Compositor) renderDefault(ctx context.Context, in Input) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(defaultPersonaPrompt),
	)
	vars := map[string]any{
		"Person":            in.Person,
		"Question":          in.Question,
		"VoiceInstructions": VoiceInstructions(in.VoiceStyle),
		"History":           recentHistory(in.State),
		"Knowledge":         strings.TrimSpace(in.Knowledge),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("persona prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("persona prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

func (c *Compositor) renderOverride(ctx context.Context, in Input) (string, error) {
	voice := VoiceInstructions(in.VoiceStyle)
	history := renderHistory(recentHistory(in.State))
	knowledge := strings.TrimSpace(in.Knowledge)

	tpl := prompt.FromMessages(schema.FString, schema.SystemMessage(c.override))
	msgs, err := tpl.Format(ctx, map[string]any{
		placeholderPerson:   in.Person,
		placeholderQuestion: in.Question,
		placeholderContext:  combinedContext(history, knowledge),
		placeholderVoice:    voice,
		placeholderHistory:  history,
		placeholderKnow:     knowledge,
	})
	if err != nil {
		return "", fmt.Errorf("prompt override render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt override render: empty result")
	}
	out := msgs[0].Content

	// Overrides without a voice slot get the instructions after the first line.
	if voice != "" && !strings.Contains(c.override, "{"+placeholderVoice+"}") {
		out = insertAfterFirstLine(out, voice)
	}
	return collapseBlankLines(out), nil
}

func renderHistory(lines []historyLine) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CONVERSATION CONTEXT (most recent last):")
	for _, l := range lines {
		b.WriteString("\nQ: " + l.Question)
		b.WriteString("\nA: " + l.Answer)
	}
	return b.String()
}

func combinedContext(history, knowledge string) string {
	var parts []string
	if history != "" {
		parts = append(parts, history)
	}
	if knowledge != "" {
		parts = append(parts, "KNOWLEDGE CONTEXT:\n"+knowledge)
	}
	return strings.Join(parts, "\n\n")
}

func insertAfterFirstLine(s, block string) string {
	s = strings.TrimLeft(s, "\n")
	first, rest, found := strings.Cut(s, "\n")
	if !found {
		return s + "\n\n" + block
	}
	return first + "\n\n" + block + "\n\n" + rest
}

// collapseBlankLines removes runs of blank lines left by empty placeholders.
func collapseBlankLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
