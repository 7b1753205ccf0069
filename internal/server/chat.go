package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/charliechat-core/server/internal/agent/graph"
	"github.com/charliechat-core/server/internal/agent/graph/conversations"
	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	logx "github.com/charliechat-core/server/pkg/logger"
)

const (
	headerHTMX         = "HX-Request"
	headerSessionState = "X-Session-State"
	contentTypePlain   = "PlainText"
)

type chatForm struct {
	SessionID    string `form:"session_id"`
	Text         string `form:"text"`
	SessionState string `form:"session_state"`
	VoiceStyle   string `form:"voice_style"`
}

type chatJSON struct {
	SessionID    string          `json:"session_id"`
	Text         string          `json:"text"`
	SessionState json.RawMessage `json:"session_state"`
	VoiceStyle   string          `json:"voice_style"`
}

type chatMessage struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type chatResponse struct {
	Messages     []chatMessage      `json:"messages"`
	SessionState model.SessionState `json:"session_state"`
}

// ChatHandler serves POST /chat.
type ChatHandler struct {
	runner   graph.Runner
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func NewChatHandler(runner graph.Runner) *ChatHandler {
	return &ChatHandler{
		runner: runner,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	in, err := bindTurnInput(c)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.runner.Invoke(c.Request.Context(), in)
	if err != nil {
		logx.Error().Err(err).Str("session_id", in.SessionID).Msg("turn failed")
		writeError(c, err)
		return
	}

	if c.GetHeader(headerHTMX) != "" {
		if encoded, err := conversations.EncodeASCII(out.State); err == nil {
			c.Header(headerSessionState, encoded)
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.bubble(out.Answer)))
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Messages:     []chatMessage{{ContentType: contentTypePlain, Content: out.Answer}},
		SessionState: withHistory(out.State),
	})
}

// bubble renders the answer as a sanitized HTML chat bubble.
func (h *ChatHandler) bubble(answer string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(answer), &buf); err != nil {
		buf.Reset()
		buf.WriteString(h.policy.Sanitize(answer))
	}
	safe := h.policy.SanitizeBytes(buf.Bytes())
	return `<div class="message message-bot"><div class="bubble">` +
		strings.TrimSpace(string(safe)) +
		`</div></div>`
}

func bindTurnInput(c *gin.Context) (model.TurnInput, error) {
	var (
		in       model.TurnInput
		rawState string
	)
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var body chatJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return in, errx.New(err, http.StatusBadRequest, "malformed JSON body")
		}
		in = model.TurnInput{SessionID: body.SessionID, Text: body.Text, VoiceStyle: body.VoiceStyle}
		rawState = stateFromJSON(body.SessionState)
	} else {
		var form chatForm
		if err := c.ShouldBind(&form); err != nil {
			return in, errx.New(err, http.StatusBadRequest, "malformed form body")
		}
		in = model.TurnInput{SessionID: form.SessionID, Text: form.Text, VoiceStyle: form.VoiceStyle}
		rawState = form.SessionState
	}

	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		// only a cookie the client actually sent counts, not one issued on this request
		if id, err := c.Cookie(sessionCookie); err == nil {
			in.SessionID = strings.TrimSpace(id)
		}
	}
	if in.SessionID == "" || in.Text == "" {
		return in, errx.BadRequest("session_id and text are required")
	}

	state, err := conversations.Decode(rawState)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", in.SessionID).Msg("ignoring undecodable session_state")
		state = nil
	}
	in.PriorState = state
	return in, nil
}

// stateFromJSON accepts session_state either as an object or as a JSON-encoded string.
func stateFromJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func withHistory(s model.SessionState) model.SessionState {
	if s.ConversationHistory == nil {
		s.ConversationHistory = []model.Exchange{}
	}
	return s
}

func writeError(c *gin.Context, err error) {
	var appErr *errx.AppError
	if !errors.As(err, &appErr) {
		err = errx.New(err, http.StatusInternalServerError, errx.SystemErrorMessage)
	}
	c.AbortWithStatusJSON(errx.StatusOf(err), gin.H{"error": errx.MessageOf(err)})
}
