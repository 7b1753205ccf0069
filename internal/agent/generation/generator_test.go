package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliechat-core/server/internal/agent/generation"
	"github.com/charliechat-core/server/internal/agent/model"
)

type fakeChatModel struct {
	reply     *schema.Message
	err       error
	calls     int
	lastInput []*schema.Message
	maxTokens *int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	f.lastInput = input
	f.maxTokens = einomodel.GetCommonOptions(nil, opts...).MaxTokens
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatGenerator_Success(t *testing.T) {
	chat := &fakeChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "  I lead with empathy.  ",
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}}
	g := generation.NewChatGenerator(chat, "gemini-2.5-flash", 0)

	got, err := g.Generate(context.Background(), "prompt text", 150)
	require.NoError(t, err)
	assert.Equal(t, "I lead with empathy.", got)

	require.Len(t, chat.lastInput, 1)
	assert.Equal(t, schema.User, chat.lastInput[0].Role)
	assert.Equal(t, "prompt text", chat.lastInput[0].Content)
	require.NotNil(t, chat.maxTokens)
	assert.Equal(t, 150, *chat.maxTokens)
}

func TestChatGenerator_Failures(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChatModel
	}{
		{"backend error", &fakeChatModel{err: errors.New("503 unavailable")}},
		{"nil message", &fakeChatModel{}},
		{"blank content", &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "  "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := generation.NewChatGenerator(tt.chat, "m", 0)
			_, err := g.Generate(context.Background(), "p", 100)
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrGeneration)
			assert.Equal(t, 1, tt.chat.calls, "no retry")
		})
	}
}

func TestOpenAIGenerator(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "id": "cmpl-1", "object": "chat.completion", "model": "gpt-4o-mini",
		  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello from Charles."}, "finish_reason": "stop"}],
		  "usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer srv.Close()

	g, err := generation.NewOpenAIGenerator(model.GenerationConfig{
		Model:         "gpt-4o-mini",
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
	})
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), "say hi", 150)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Charles.", got)
	assert.Equal(t, "gpt-4o-mini", gotReq["model"])
	assert.EqualValues(t, 150, gotReq["max_tokens"])
}

func TestOpenAIGenerator_BackendError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad prompt", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	g, err := generation.NewOpenAIGenerator(model.GenerationConfig{
		Model:         "gpt-4o-mini",
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
	})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "p", 100)
	assert.ErrorIs(t, err, generation.ErrGeneration)
	assert.Equal(t, 1, calls)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := generation.New(context.Background(), model.GenerationConfig{Provider: "llama"})
	assert.Error(t, err)
}

func TestNewOpenAIGenerator_RequiresKey(t *testing.T) {
	_, err := generation.NewOpenAIGenerator(model.GenerationConfig{Model: "gpt-4o"})
	assert.Error(t, err)
}
