package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/charliechat-core/server/internal/agent/model"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// ErrGeneration marks every failure of a generation call. Callers treat it
// as terminal for the turn; nothing here retries.
var ErrGeneration = errors.New("generation failed")

// ChatGenerator runs single-shot completions through an eino chat model.
type ChatGenerator struct {
	chat      einomodel.BaseChatModel
	modelName string
	timeout   time.Duration
}

// NewChatGenerator wraps an eino chat model. timeout <= 0 leaves the
// caller's deadline in charge.
func NewChatGenerator(chat einomodel.BaseChatModel, modelName string, timeout time.Duration) *ChatGenerator {
	return &ChatGenerator{chat: chat, modelName: modelName, timeout: timeout}
}

var _ model.Generator = (*ChatGenerator)(nil)

// Generate sends prompt as one user message and returns the reply text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.chat == nil {
		return "", fmt.Errorf("%w: chat model is nil", ErrGeneration)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      g.modelName,
		Type:      "Generator",
		Component: components.ComponentOfChatModel,
	})

	var opts []einomodel.Option
	if maxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(maxTokens))
	}

	out, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrGeneration, g.modelName, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: %s: nil message", ErrGeneration, g.modelName)
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		logUsage(g.modelName, &model.TokenUsage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		})
	}

	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", fmt.Errorf("%w: %s: empty content", ErrGeneration, g.modelName)
	}
	return text, nil
}

// logUsage computes and logs the usage cost of one call.
func logUsage(modelName string, usage *model.TokenUsage) {
	cost := usage.Cost(model.ResolvePricing(modelName))
	logx.Debug().
		Str("component", "generation").
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", cost.Input).
		Float64("output_cost_usd", cost.Output).
		Float64("total_cost_usd", cost.Total()).
		Msg("LLM usage")
}
