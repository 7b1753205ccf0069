package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/charliechat-core/server/internal/agent/model"
	"github.com/charliechat-core/server/internal/core"
	"github.com/charliechat-core/server/internal/server"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type fakeRunner struct {
	got    []model.TurnInput
	answer string
}

func (f *fakeRunner) Invoke(ctx context.Context, in model.TurnInput) (model.TurnOutput, error) {
	f.got = append(f.got, in)
	state := model.StateOrEmpty(in.PriorState)
	state.ConversationHistory = append(state.ConversationHistory, model.Exchange{Question: in.Text, Answer: f.answer})
	return model.TurnOutput{Answer: f.answer, State: state, Path: model.PathGenerated}, nil
}

func postForm(t *testing.T, h http.Handler, values url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestChat_FormJSONResponse(t *testing.T) {
	runner := &fakeRunner{answer: "I build things."}
	h := server.NewRouter(core.Testing, runner)

	w := postForm(t, h, url.Values{
		"session_id":    {"s-1"},
		"text":          {"what do you do"},
		"voice_style":   {"pirate"},
		"session_state": {`{"conversation_history":[{"question":"hi","answer":"hello"}],"current_voice_style":"ninja"}`},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"messages"`
		SessionState model.SessionState `json:"session_state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "PlainText", body.Messages[0].ContentType)
	assert.Equal(t, "I build things.", body.Messages[0].Content)
	assert.Len(t, body.SessionState.ConversationHistory, 2)

	require.Len(t, runner.got, 1)
	in := runner.got[0]
	assert.Equal(t, "s-1", in.SessionID)
	assert.Equal(t, "pirate", in.VoiceStyle)
	require.NotNil(t, in.PriorState)
	assert.Equal(t, "ninja", in.PriorState.CurrentVoiceStyle)
}

func TestChat_JSONBody(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	h := server.NewRouter(core.Testing, runner)

	for name, state := range map[string]string{
		"object": `{"conversation_history":[{"question":"q","answer":"a"}]}`,
		"string": `"{\"conversation_history\":[{\"question\":\"q\",\"answer\":\"a\"}]}"`,
	} {
		t.Run(name, func(t *testing.T) {
			body := `{"session_id":"s-2","text":"hello","session_state":` + state + `}`
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			in := runner.got[len(runner.got)-1]
			require.NotNil(t, in.PriorState)
			assert.Equal(t, []model.Exchange{{Question: "q", Answer: "a"}}, in.PriorState.ConversationHistory)
		})
	}
}

func TestChat_UndecodableStateIsIgnored(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	h := server.NewRouter(core.Testing, runner)

	w := postForm(t, h, url.Values{"session_id": {"s"}, "text": {"hi"}, "session_state": {"{not json"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, runner.got[0].PriorState)
}

func TestChat_MissingFields(t *testing.T) {
	runner := &fakeRunner{}
	h := server.NewRouter(core.Testing, runner)

	for name, values := range map[string]url.Values{
		"no session": {"text": {"hi"}},
		"no text":    {"session_id": {"s"}},
		"empty":      {},
	} {
		t.Run(name, func(t *testing.T) {
			w := postForm(t, h, values, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "session_id and text are required")
		})
	}
	assert.Empty(t, runner.got)
}

func TestChat_MalformedJSON(t *testing.T) {
	h := server.NewRouter(core.Testing, &fakeRunner{})
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"session_id":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_HTMXBubble(t *testing.T) {
	runner := &fakeRunner{answer: "Hello **world**\n<script>alert(1)</script>"}
	h := server.NewRouter(core.Testing, runner)

	w := postForm(t, h, url.Values{"session_id": {"s"}, "text": {"hi"}}, map[string]string{"HX-Request": "true"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div class="message message-bot"><div class="bubble">`))
	assert.True(t, strings.HasSuffix(body, `</div></div>`))
	assert.Contains(t, body, "<strong>world</strong>")
	assert.NotContains(t, body, "<script>")

	var state model.SessionState
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get("X-Session-State")), &state))
	assert.Len(t, state.ConversationHistory, 1)
}

func TestChat_HTMXStateHeaderRoundTripsNonASCII(t *testing.T) {
	runner := &fakeRunner{answer: "Olá, café ☕"}
	h := server.NewRouter(core.Testing, runner)
	hx := map[string]string{"HX-Request": "true"}

	first := postForm(t, h, url.Values{"session_id": {"s"}, "text": {"naïve?"}}, hx)
	require.Equal(t, http.StatusOK, first.Code)
	header := first.Header().Get("X-Session-State")
	require.NotEmpty(t, header)
	for i := 0; i < len(header); i++ {
		require.Less(t, header[i], byte(0x80), "header byte %d is not ASCII", i)
	}

	second := postForm(t, h, url.Values{"session_id": {"s"}, "text": {"東京?"}, "session_state": {header}}, hx)
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, runner.got, 2)
	prior := runner.got[1].PriorState
	require.NotNil(t, prior)
	assert.Equal(t, []model.Exchange{{Question: "naïve?", Answer: "Olá, café ☕"}}, prior.ConversationHistory)
}

func TestChat_SessionIDFallsBackToCookie(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	h := server.NewRouter(core.Testing, runner)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(url.Values{"text": {"hi"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "web-kilo-123"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, runner.got, 1)
	assert.Equal(t, "web-kilo-123", runner.got[0].SessionID)
}

func TestChat_SetsSessionCookie(t *testing.T) {
	h := server.NewRouter(core.Testing, &fakeRunner{answer: "ok"})
	w := postForm(t, h, url.Values{"session_id": {"s"}, "text": {"hi"}}, nil)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			found = true
			assert.True(t, strings.HasPrefix(c.Value, "web-"))
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)
}

func TestHealthz(t *testing.T) {
	h := server.NewRouter(core.Testing, &fakeRunner{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestNewSessionID(t *testing.T) {
	a, b := server.NewSessionID(), server.NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^web-[a-z]+-[0-9a-f-]{36}$`, a)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := server.New(server.Config{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
