package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/charliechat-core/server/pkg/logger"
)

// newPromptHandler builds a typed PromptCallbackHandler.
func newPromptHandler(verbose bool) *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output == nil || len(output.Result) == 0 || output.Result[0] == nil {
				return ctx
			}
			content := output.Result[0].Content
			e := logx.Debug().Str("prompt", info.Name).Int("chars", len(content))
			if verbose {
				e = e.Str("rendered", content)
			}
			e.Msg("prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("prompt", info.Name).Msg("prompt render error")
			return ctx
		},
	}
}
