package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/charliechat-core/server/internal/agent/graph"
	"github.com/charliechat-core/server/internal/core"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// NewRouter wires the HTTP routes.
func NewRouter(env core.Environment, runner graph.Runner) *gin.Engine {
	gin.SetMode(env.GinMode())
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	chat := NewChatHandler(runner)
	r.POST("/chat", sessionMiddleware(), chat.Chat)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

type Server struct {
	cfg  Config
	http *http.Server
}

func New(cfg Config, handler http.Handler) *Server {
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		logx.Info().Msg("http server shutting down")
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
