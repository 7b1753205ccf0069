package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/charliechat-core/server/pkg/logger"
)

// newModelHandler builds a typed ModelCallbackHandler logging around model calls.
func newModelHandler(verbose bool) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			e := logx.Debug().Str("model", info.Name).Str("type", info.Type)
			if input != nil {
				e = e.Int("messages", len(input.Messages))
				if verbose {
					e = e.Str("user", lastUserContent(input.Messages))
				}
			}
			e.Msg("model call start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			e := logx.Debug().Str("model", info.Name)
			if output != nil {
				if output.TokenUsage != nil {
					e = e.Int("total_tokens", output.TokenUsage.TotalTokens)
				}
				if verbose && output.Message != nil {
					e = e.Str("assistant", strings.TrimSpace(output.Message.Content))
				}
			}
			e.Msg("model call end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("model", info.Name).Msg("model call error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
