package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/charliechat-core/server/internal/agent/events"
	"github.com/charliechat-core/server/internal/agent/generation"
	"github.com/charliechat-core/server/internal/agent/graph"
	"github.com/charliechat-core/server/internal/agent/graph/policies"
	"github.com/charliechat-core/server/internal/agent/knowledge"
	"github.com/charliechat-core/server/internal/agent/model"
	"github.com/charliechat-core/server/internal/agent/recognizer"
	"github.com/charliechat-core/server/internal/agent/repo"
	"github.com/charliechat-core/server/internal/core"
	"github.com/charliechat-core/server/internal/server"
	logx "github.com/charliechat-core/server/pkg/logger"
	pkgredis "github.com/charliechat-core/server/pkg/redis"
	"github.com/charliechat-core/server/pkg/telemetry"
)

// AppConfig defines all configurable parameters of the chat server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Debug       bool   `envconfig:"DEBUG_LOGGING" default:"false"`

	// Infrastructure
	HTTP    server.Config
	Redis   pkgredis.Config
	Metrics telemetry.Config

	// Agent configs
	Generation model.GenerationConfig
	Persona    model.PersonaConfig
	Knowledge  model.KnowledgeConfig
	Recognizer model.RecognizerConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Debug: cfg.Debug})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, env, cfg); err != nil {
		logx.Fatal().Err(err).Msg("server exited with error")
	}
	logx.Info().Msg("server stopped")
}

func run(ctx context.Context, env core.Environment, cfg AppConfig) error {
	mp, shutdownMetrics, err := telemetry.NewMeterProvider(ctx, cfg.Metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logx.Warn().Err(err).Msg("metrics shutdown failed")
		}
	}()

	metrics, err := events.NewMetrics(mp)
	if err != nil {
		return err
	}

	gen, err := generation.New(ctx, cfg.Generation)
	if err != nil {
		return err
	}

	retriever := knowledge.New(cfg.Knowledge)
	if cfg.Redis.Enabled() && cfg.Knowledge.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		retriever = repo.NewCachedRetriever(retriever, rdb, cfg.Knowledge.BaseID, cfg.Knowledge.CacheTTL)
		logx.Info().Str("knowledge_base", cfg.Knowledge.BaseID).Msg("passage cache enabled")
	}

	var counter policies.TokenCounter = policies.EstimateCounter{}
	if tc, err := policies.NewTiktokenCounter(cfg.Generation.Model); err != nil {
		logx.Warn().Err(err).Str("model", cfg.Generation.Model).Msg("tokenizer unavailable, using estimate")
	} else {
		counter = tc
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Recognizer: recognizer.New(cfg.Recognizer, cfg.Persona.Aliases),
		Retriever:  retriever,
		Generator:  gen,
		Persona:    cfg.Persona,
		Selector: policies.SelectorConfig{
			Summarize: cfg.Knowledge.Summarize,
			MaxTokens: cfg.Knowledge.MaxTokens,
			Counter:   counter,
		},
		MaxTokens: cfg.Generation.MaxTokens,
		Emitter:   events.Multi{events.Logger{}, metrics},
		Verbose:   cfg.Debug,
	})
	if err != nil {
		return err
	}

	logx.Info().
		Str("env", env.String()).
		Str("provider", cfg.Generation.Provider).
		Str("model", cfg.Generation.Model).
		Bool("knowledge", cfg.Knowledge.Enabled()).
		Bool("recognizer", cfg.Recognizer.Endpoint != "").
		Msg("chat turn graph ready")

	return server.New(cfg.HTTP, server.NewRouter(env, runner)).Run(ctx)
}
