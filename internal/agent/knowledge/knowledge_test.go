package knowledge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliechat-core/server/internal/agent/knowledge"
	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
)

func TestHTTPRetriever(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results": [
		  {"content": {"text": "Led platform team 2019-2023."}, "score": 0.9},
		  {"content": {"text": "   "}, "score": 0.8},
		  {"content": {"text": "BSc Computer Science."}, "score": 0.7},
		  {"content": {"text": "Third."}, "score": 0.6}
		]}`))
	}))
	defer srv.Close()

	r := knowledge.NewHTTPRetriever(model.KnowledgeConfig{BaseID: "kb-1", Endpoint: srv.URL})
	passages, err := r.Retrieve(context.Background(), "background", 2)
	require.NoError(t, err)

	assert.Equal(t, "kb-1", got["knowledgeBaseId"])
	assert.Equal(t, "background", got["query"])
	assert.EqualValues(t, 2, got["numberOfResults"])
	assert.Equal(t, []string{"Led platform team 2019-2023.", "BSc Computer Science."}, knowledge.Texts(passages))
}

func TestHTTPRetriever_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := knowledge.NewHTTPRetriever(model.KnowledgeConfig{BaseID: "kb", Endpoint: srv.URL})
	_, err := r.Retrieve(context.Background(), "q", 3)
	assert.ErrorIs(t, err, knowledge.ErrUnavailable)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestNew_DisabledWithoutBaseID(t *testing.T) {
	r := knowledge.New(model.KnowledgeConfig{Endpoint: "http://example.invalid"})
	_, err := r.Retrieve(context.Background(), "q", 3)
	assert.ErrorIs(t, err, knowledge.ErrUnavailable)
}

func TestTopPassages(t *testing.T) {
	in := []model.Passage{{Text: "a"}, {Text: ""}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}, {Text: "f"}}

	assert.Equal(t, []string{"a", "b"}, knowledge.Texts(knowledge.TopPassages(in, 2)))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, knowledge.Texts(knowledge.TopPassages(in, 0)))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, knowledge.Texts(knowledge.TopPassages(in, 50)))
	assert.Empty(t, knowledge.TopPassages(nil, 3))
}
