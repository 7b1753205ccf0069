package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/charliechat-core/server/pkg/logger"
)

// NewTurnCallbacks aggregates the observer handlers into one callbacks.Handler.
// Full prompt and model text is only logged when verbose is set.
func NewTurnCallbacks(verbose bool) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(verbose)).
		Prompt(newPromptHandler(verbose)).
		Handler()
}

// NewNodeErrorCallbacks logs every failing graph node.
func NewNodeErrorCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			name, comp := "", ""
			if info != nil {
				name, comp = info.Name, string(info.Component)
			}
			logx.Warn().Err(err).Str("node", name).Str("component", comp).Msg("graph node failed")
			return ctx
		}).
		Build()
}
