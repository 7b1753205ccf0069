package server

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	logx "github.com/charliechat-core/server/pkg/logger"
)

const (
	sessionCookie    = "session_id"
	sessionCookieAge = 30 * 24 * 60 * 60
	sessionKey       = "session_id"
)

var sessionWords = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
	"golf", "hotel", "india", "juliet", "kilo", "lima", "mike",
}

// NewSessionID returns a readable id like "web-delta-<uuid>".
func NewSessionID() string {
	return "web-" + sessionWords[rand.IntN(len(sessionWords))] + "-" + uuid.NewString()
}

// sessionMiddleware issues or refreshes the session cookie. /chat falls
// back to the cookie when the body carries no session_id.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = NewSessionID()
		}
		c.Set(sessionKey, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, sessionCookieAge, "/", "", c.Request.TLS != nil, true)
		c.Next()
	}
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		e := logx.Debug()
		if status >= http.StatusInternalServerError {
			e = logx.Error()
		} else if status >= http.StatusBadRequest {
			e = logx.Warn()
		}
		e.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("session_id", c.GetString(sessionKey)).
			Msg("http request")
	}
}
