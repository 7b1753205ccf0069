package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/charliechat-core/server/internal/agent/events"
	"github.com/charliechat-core/server/internal/agent/graph/conversations"
	"github.com/charliechat-core/server/internal/agent/graph/parsers"
	"github.com/charliechat-core/server/internal/agent/graph/policies"
	"github.com/charliechat-core/server/internal/agent/graph/prompts"
	"github.com/charliechat-core/server/internal/agent/knowledge"
	"github.com/charliechat-core/server/internal/agent/model"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// User-facing fixed replies.
const (
	ClarificationMessage = "I did not catch a question. Please ask me about experience, skills, or leadership style."
	FallbackMessage      = "I'm having trouble processing your request right now. Please try again."
)

// NewRecognizePreHandler seeds the turn state from the inbound message.
// The prior state is copied so nothing downstream can reach the caller's value.
func NewRecognizePreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		if s.TurnID == "" {
			s.TurnID = events.NewTurnID()
		}
		s.SessionID = in.SessionID
		s.RawText = in.Text
		s.VoiceStyle = strings.TrimSpace(in.VoiceStyle)
		s.Started = time.Now()
		s.Prior = model.StateOrEmpty(in.PriorState)
		s.Working = s.Prior.Clone()
		return in, nil
	}
}

// NewRecognizeNode asks the recognizer for slots or a direct reply.
// Recognizer failure degrades to an empty recognition.
func NewRecognizeNode(r model.Recognizer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*model.Recognition, error) {
		var dialogState []byte
		if in.PriorState != nil {
			dialogState = in.PriorState.RecognizerState
		}

		rec, err := r.Recognize(ctx, in.SessionID, in.Text, dialogState)
		if err != nil || rec == nil {
			logx.Warn().Err(err).Str("session_id", in.SessionID).
				Msg("recognizer failed; continuing with raw text")
			return &model.Recognition{Status: model.RecognitionUnavailable}, nil
		}
		return rec, nil
	})
}

// NewRecognizePostHandler keeps the recognition in state for later nodes.
func NewRecognizePostHandler() func(context.Context, *model.Recognition, *model.TurnState) (*model.Recognition, error) {
	return func(ctx context.Context, out *model.Recognition, s *model.TurnState) (*model.Recognition, error) {
		s.Recognition = out
		logx.Debug().
			Str("turn_id", s.TurnID).
			Str("status", string(out.Status)).
			Str("intent", out.TopIntent()).
			Bool("person_found", out.Slots.Person.Found).
			Bool("question_found", out.Slots.Question.Found).
			Int("direct_messages", len(out.DirectMessages)).
			Msg("recognition done")
		return out, nil
	}
}

// NewDirectResponseCondition routes to the direct reply only when the
// recognizer fully handled the turn.
func NewDirectResponseCondition() func(context.Context, *model.Recognition) (string, error) {
	return func(ctx context.Context, rec *model.Recognition) (string, error) {
		if _, ok := parsers.UsableDirectResponse(rec); ok {
			logx.Debug().Msg("Routing to DirectResponse - recognizer handled the intent")
			return NodeDirectResponse, nil
		}
		logx.Debug().Msg("Routing to ResolveQuestion - generative path")
		return NodeResolveQuestion, nil
	}
}

// NewDirectResponseNode returns the recognizer's reply with the prior state untouched.
func NewDirectResponseNode(emitter events.Emitter) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, rec *model.Recognition) (model.TurnOutput, error) {
		answer, _ := parsers.UsableDirectResponse(rec)
		var out model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			out = model.TurnOutput{Answer: answer, State: s.Prior.Clone(), Path: model.PathDirect}
			emitter.DirectResponse(ctx, turnEvent(s, model.PathDirect))
			return nil
		})
		if err != nil {
			return model.TurnOutput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// NewResolveQuestionNode settles question, person and voice for the turn.
func NewResolveQuestionNode(persons *policies.PersonNormalizer, defaultVoice string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, rec *model.Recognition) (model.TurnPlan, error) {
		var plan model.TurnPlan
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			plan.Question = resolveQuestion(rec, s.RawText)
			if plan.Question == "" {
				plan.Clarify = true
				return nil
			}

			var rawPerson string
			if rec != nil && rec.Slots.Person.Present() {
				rawPerson = rec.Slots.Person.Value
			}
			plan.Person = persons.Normalize(rawPerson)
			plan.VoiceStyle = resolveVoice(s.VoiceStyle, s.Working.CurrentVoiceStyle, defaultVoice)
			if plan.VoiceStyle != "" && !prompts.KnownVoiceStyle(plan.VoiceStyle) {
				logx.Debug().Str("turn_id", s.TurnID).Str("voice_style", plan.VoiceStyle).
					Msg("unknown voice style; no voice instructions")
			}
			s.Working.CurrentVoiceStyle = plan.VoiceStyle

			if rec != nil && len(rec.DialogState) > 0 {
				s.Working.RecognizerState = append(s.Working.RecognizerState[:0:0], rec.DialogState...)
			}
			return nil
		})
		if err != nil {
			return model.TurnPlan{}, fmt.Errorf("failed to access state: %w", err)
		}
		return plan, nil
	})
}

// NewClarifyCondition routes unusable input to the clarification reply.
func NewClarifyCondition() func(context.Context, model.TurnPlan) (string, error) {
	return func(ctx context.Context, plan model.TurnPlan) (string, error) {
		if plan.Clarify {
			logx.Debug().Msg("Routing to Clarify - no usable question")
			return NodeClarify, nil
		}
		return NodeComposePrompt, nil
	}
}

// NewClarifyNode asks for a question and wipes memory so stale context
// does not leak into the next unrelated turn.
func NewClarifyNode(emitter events.Emitter) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.TurnPlan) (model.TurnOutput, error) {
		var out model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			conversations.Reset(&s.Working)
			out = model.TurnOutput{Answer: ClarificationMessage, State: s.Working.Clone(), Path: model.PathClarify}
			emitter.Clarified(ctx, turnEvent(s, model.PathClarify))
			return nil
		})
		if err != nil {
			return model.TurnOutput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// ComposeDeps groups what prompt composition needs.
type ComposeDeps struct {
	Retriever  model.Retriever
	Selector   *policies.ContextSelector
	Compositor *prompts.Compositor
	// MaxTokens is the ceiling handed to the length policy.
	MaxTokens int
}

// NewComposePromptNode budgets the answer, gathers knowledge and renders the prompt.
func NewComposePromptNode(deps ComposeDeps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, plan model.TurnPlan) (model.GenerationRequest, error) {
		var (
			turnID string
			state  model.SessionState
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			turnID = s.TurnID
			state = s.Working.Clone()
			return nil
		})
		if err != nil {
			return model.GenerationRequest{}, fmt.Errorf("failed to access state: %w", err)
		}

		maxTokens := policies.TargetTokens(plan.Question, deps.MaxTokens)
		kind := policies.ClassifyQuestion(plan.Question)
		block, count := gatherKnowledge(ctx, deps, turnID, plan.Question)

		prompt, err := deps.Compositor.Compose(ctx, prompts.Input{
			Person:     plan.Person,
			Question:   plan.Question,
			State:      state,
			VoiceStyle: plan.VoiceStyle,
			Knowledge:  block,
		})
		if err != nil {
			return model.GenerationRequest{}, fmt.Errorf("compose prompt: %w", err)
		}

		logx.Debug().
			Str("turn_id", turnID).
			Str("person", plan.Person).
			Str("voice_style", plan.VoiceStyle).
			Int("max_tokens", maxTokens).
			Str("knowledge_kind", string(kind)).
			Int("knowledge_count", count).
			Int("prompt_chars", len(prompt)).
			Msg("prompt composed")

		return model.GenerationRequest{
			Plan:           plan,
			Prompt:         prompt,
			MaxTokens:      maxTokens,
			KnowledgeKind:  string(kind),
			KnowledgeCount: count,
		}, nil
	})
}

// gatherKnowledge never fails: any retrieval problem yields an empty block.
func gatherKnowledge(ctx context.Context, deps ComposeDeps, turnID, question string) (string, int) {
	if deps.Retriever == nil || deps.Selector == nil {
		return "", 0
	}
	passages, err := deps.Retriever.Retrieve(ctx, question, deps.Selector.RecommendFetch(question))
	if errors.Is(err, knowledge.ErrUnavailable) {
		logx.Debug().Err(err).Str("turn_id", turnID).Msg("knowledge unavailable; continuing without context")
		return "", 0
	}
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Msg("knowledge retrieval failed; continuing without context")
		return "", 0
	}
	selected, _ := deps.Selector.Select(question, knowledge.Texts(knowledge.TopPassages(passages, knowledge.MaxPassages)))
	block := deps.Selector.Assemble(selected)
	if block == "" {
		return "", 0
	}
	return block, len(selected)
}

// NewGenerateNode runs the single generation attempt and folds the outcome
// back into session state.
func NewGenerateNode(gen model.Generator, emitter events.Emitter) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, req model.GenerationRequest) (model.TurnOutput, error) {
		answer, genErr := gen.Generate(ctx, req.Prompt, req.MaxTokens)

		var out model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			ev := turnEvent(s, model.PathGenerated)
			ev.Person = req.Plan.Person
			ev.MaxTokens = req.MaxTokens
			ev.KnowledgeKind = req.KnowledgeKind
			ev.KnowledgeCount = req.KnowledgeCount

			if genErr != nil {
				conversations.Forget(&s.Working)
				out = model.TurnOutput{Answer: FallbackMessage, State: s.Working.Clone(), Path: model.PathGenFailure}
				ev.Path = model.PathGenFailure
				ev.Err = genErr
				emitter.TurnFailed(ctx, ev)
				return nil
			}

			conversations.Remember(&s.Working, req.Plan.Question, answer, req.Plan.VoiceStyle)
			out = model.TurnOutput{Answer: answer, State: s.Working.Clone(), Path: model.PathGenerated}
			emitter.TurnCompleted(ctx, ev)
			return nil
		})
		if err != nil {
			return model.TurnOutput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}
