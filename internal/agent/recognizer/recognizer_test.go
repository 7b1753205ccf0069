package recognizer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	"github.com/charliechat-core/server/internal/agent/recognizer"
)

func TestHTTPRecognizer_RoundTrip(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "messages": [{"contentType": "PlainText", "content": "Hi! Ask me anything."}],
		  "sessionState": {"dialogAction": {"type": "Close"}},
		  "interpretations": [{"intent": {"name": "Greeting"}}]
		}`))
	}))
	defer srv.Close()

	r := recognizer.NewHTTPRecognizer(model.RecognizerConfig{Endpoint: srv.URL})
	rec, err := r.Recognize(context.Background(), "s-1", "hello", []byte(`{"k":"v"}`))
	require.NoError(t, err)

	assert.Equal(t, "s-1", got["sessionId"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, map[string]any{"k": "v"}, got["sessionState"])

	assert.Equal(t, []string{"Hi! Ask me anything."}, rec.DirectMessages)
	assert.Equal(t, "Greeting", rec.TopIntent())
	assert.JSONEq(t, `{"dialogAction":{"type":"Close"}}`, string(rec.DialogState))
}

func TestHTTPRecognizer_OmitsEmptyState(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	r := recognizer.NewHTTPRecognizer(model.RecognizerConfig{Endpoint: srv.URL})
	_, err := r.Recognize(context.Background(), "s-1", "hello", nil)
	require.NoError(t, err)
	_, present := got["sessionState"]
	assert.False(t, present)
}

func TestHTTPRecognizer_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			r := recognizer.NewHTTPRecognizer(model.RecognizerConfig{Endpoint: srv.URL})
			_, err := r.Recognize(context.Background(), "s", "hi", nil)
			assert.ErrorIs(t, err, recognizer.ErrUnavailable)
			assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
			assert.Equal(t, "upstream service failed: recognizer", errx.MessageOf(err))
		})
	}
}

func TestLocalRecognizer(t *testing.T) {
	r := recognizer.New(model.RecognizerConfig{}, []string{"chaz"})
	rec, err := r.Recognize(context.Background(), "s", "What does Chaz think about remote work?", []byte(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, model.RecognitionOK, rec.Status)
	assert.Empty(t, rec.DirectMessages)
	assert.Equal(t, model.SlotOf("chaz"), rec.Slots.Person)
	assert.Equal(t, model.SlotOf("What does Chaz think about remote work?"), rec.Slots.Question)
	assert.JSONEq(t, `{"a":1}`, string(rec.DialogState))
}
