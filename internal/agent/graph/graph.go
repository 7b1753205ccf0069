package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/charliechat-core/server/internal/agent/events"
	"github.com/charliechat-core/server/internal/agent/graph/conversations"
	"github.com/charliechat-core/server/internal/agent/graph/nodes"
	"github.com/charliechat-core/server/internal/agent/graph/observers"
	"github.com/charliechat-core/server/internal/agent/graph/policies"
	"github.com/charliechat-core/server/internal/agent/graph/prompts"
	"github.com/charliechat-core/server/internal/agent/model"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// Runner executes one conversational turn.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (model.TurnOutput, error)
}

// Config holds everything needed to compose the turn graph end-to-end.
type Config struct {
	Recognizer model.Recognizer
	Retriever  model.Retriever
	Generator  model.Generator
	Persona    model.PersonaConfig
	Selector   policies.SelectorConfig
	// MaxTokens is the generation ceiling; the length policy never exceeds it.
	MaxTokens int
	Emitter   events.Emitter
	// Verbose logs full prompts and model replies.
	Verbose bool
}

// GraphConfig holds the constructed collaborators the nodes close over.
type GraphConfig struct {
	Recognizer   model.Recognizer
	Generator    model.Generator
	Persons      *policies.PersonNormalizer
	DefaultVoice string
	Compose      nodes.ComposeDeps
	Emitter      events.Emitter
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, model.TurnOutput]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, model.TurnOutput]
	emitter  events.Emitter
	handlers []callbacks.Handler
}

// Invoke runs the graph. A failure anywhere inside the graph degrades to the
// fallback answer with the caller's prior history intact.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (model.TurnOutput, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(r.handlers...))
	if err == nil {
		return out, nil
	}

	logx.Error().Err(err).Str("session_id", in.SessionID).Msg("turn graph failed")
	state := model.StateOrEmpty(in.PriorState)
	conversations.Forget(&state)
	r.emitter.TurnFailed(ctx, events.Turn{
		TurnID:    events.NewTurnID(),
		SessionID: in.SessionID,
		Path:      model.PathGenFailure,
		Err:       err,
	})
	return model.TurnOutput{Answer: nodes.FallbackMessage, State: state, Path: model.PathGenFailure}, nil
}

// BuildTurnGraph wires the collaborators from cfg, builds the graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.Nop{}
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		Recognizer:   cfg.Recognizer,
		Generator:    cfg.Generator,
		Persons:      policies.NewPersonNormalizer(cfg.Persona.DefaultPerson, cfg.Persona.Aliases),
		DefaultVoice: cfg.Persona.DefaultVoiceStyle,
		Compose: nodes.ComposeDeps{
			Retriever:  cfg.Retriever,
			Selector:   policies.NewContextSelector(cfg.Selector),
			Compositor: prompts.NewCompositor(cfg.Persona.PromptTemplate),
			MaxTokens:  cfg.MaxTokens,
		},
		Emitter: emitter,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{
		runnable: runnable,
		emitter:  emitter,
		handlers: []callbacks.Handler{
			observers.NewTurnCallbacks(cfg.Verbose),
			observers.NewNodeErrorCallbacks(),
		},
	}, nil
}

// BuildGraph constructs and returns the compiled turn graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, model.TurnOutput], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Recognizer == nil || config.Generator == nil {
		return nil, fmt.Errorf("recognizer and generator are required")
	}
	if config.Persons == nil || config.Compose.Compositor == nil || config.Compose.Selector == nil {
		return nil, fmt.Errorf("persona or prompt collaborators are nil")
	}
	if config.Emitter == nil {
		config.Emitter = events.Nop{}
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() error {
	c := b.config
	steps := []struct {
		name string
		add  func() error
	}{
		{nodes.NodeRecognize, func() error {
			return b.graph.AddLambdaNode(nodes.NodeRecognize,
				nodes.NewRecognizeNode(c.Recognizer),
				compose.WithStatePreHandler(nodes.NewRecognizePreHandler()),
				compose.WithStatePostHandler(nodes.NewRecognizePostHandler()),
			)
		}},
		{nodes.NodeDirectResponse, func() error {
			return b.graph.AddLambdaNode(nodes.NodeDirectResponse, nodes.NewDirectResponseNode(c.Emitter))
		}},
		{nodes.NodeResolveQuestion, func() error {
			return b.graph.AddLambdaNode(nodes.NodeResolveQuestion, nodes.NewResolveQuestionNode(c.Persons, c.DefaultVoice))
		}},
		{nodes.NodeClarify, func() error {
			return b.graph.AddLambdaNode(nodes.NodeClarify, nodes.NewClarifyNode(c.Emitter))
		}},
		{nodes.NodeComposePrompt, func() error {
			return b.graph.AddLambdaNode(nodes.NodeComposePrompt, nodes.NewComposePromptNode(c.Compose))
		}},
		{nodes.NodeGenerate, func() error {
			return b.graph.AddLambdaNode(nodes.NodeGenerate, nodes.NewGenerateNode(c.Generator, c.Emitter))
		}},
	}
	for _, s := range steps {
		if err := s.add(); err != nil {
			logx.Error().Err(err).Str("node", s.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.name, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeRecognize},
		{nodes.NodeComposePrompt, nodes.NodeGenerate},
		{nodes.NodeDirectResponse, compose.END},
		{nodes.NodeClarify, compose.END},
		{nodes.NodeGenerate, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	directBranch := compose.NewGraphBranch(
		nodes.NewDirectResponseCondition(),
		map[string]bool{
			nodes.NodeDirectResponse:  true,
			nodes.NodeResolveQuestion: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRecognize, directBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding direct response branch")
		return fmt.Errorf("error adding direct response branch: %w", err)
	}

	clarifyBranch := compose.NewGraphBranch(
		nodes.NewClarifyCondition(),
		map[string]bool{
			nodes.NodeClarify:       true,
			nodes.NodeComposePrompt: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResolveQuestion, clarifyBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding clarify branch")
		return fmt.Errorf("error adding clarify branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, model.TurnOutput], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("ChatTurn"),
		compose.WithMaxRunSteps(10),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
