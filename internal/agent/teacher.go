package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"learning_agents/internal/a2a"
	"learning_agents/internal/domain"
	"learning_agents/internal/generation"
	"learning_agents/internal/templates"
)

const (
	askEndpoint = "/teacher/ask"

	RoutedQuiz   = "quiz_agent"
	RoutedReview = "review_agent"
	RoutedOpenAI = "openai_api"
)

// Relayer delivers an envelope to another agent's endpoint.
type Relayer interface {
	Send(ctx context.Context, endpoint string, env domain.TaskEnvelope) (a2a.Reply, error)
}

type Classifier interface {
	Classify(question string) domain.Intent
}

type TeacherConfig struct {
	Classifier  Classifier
	Relay       Relayer
	Channels    ChannelPolicy
	Generation  generation.Policy
	Persona     string
	DefaultUser string
	Logger      *zap.Logger
}

// Teacher classifies questions and routes them to the quiz agent, the review
// agent, or a direct explanation.
type Teacher struct {
	classifier  Classifier
	relay       Relayer
	channels    ChannelPolicy
	generation  generation.Policy
	persona     string
	defaultUser string
	logger      *zap.Logger
}

func NewTeacher(cfg TeacherConfig) *Teacher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	persona := strings.TrimSpace(cfg.Persona)
	if persona == "" {
		persona = templates.DefaultTeacherSystem
	}
	defaultUser := strings.TrimSpace(cfg.DefaultUser)
	if defaultUser == "" {
		defaultUser = "default_user"
	}
	return &Teacher{
		classifier:  cfg.Classifier,
		relay:       cfg.Relay,
		channels:    cfg.Channels,
		generation:  cfg.Generation,
		persona:     persona,
		defaultUser: defaultUser,
		logger:      logger.With(zap.String("agent", string(domain.AgentTeacher))),
	}
}

// Ask answers a learner question. Relay failures are returned unchanged so
// callers can map *a2a.RelayError to a status code.
func (t *Teacher) Ask(ctx context.Context, req domain.AskRequest) (domain.AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.AskResponse{}, fmt.Errorf("%w: question is required", ErrInvalidTask)
	}
	intent := t.classifier.Classify(question)
	t.logger.Info("question classified", zap.String("intent", string(intent)))

	switch intent {
	case domain.IntentPractice:
		message := map[string]any{}
		if topic := strings.TrimSpace(deref(req.Topic)); topic != "" {
			message["topic"] = topic
		}
		if subject := strings.TrimSpace(deref(req.Subject)); subject != "" {
			message["subject"] = subject
		}
		message["level"] = DefaultLevel
		message["question_type"] = DefaultQuestionType

		result, err := t.dispatch(ctx, domain.AgentQuiz, quizEndpoint, message)
		if err != nil {
			return domain.AskResponse{}, err
		}
		return domain.AskResponse{QuestionType: intent, Response: result, RoutedTo: RoutedQuiz}, nil

	case domain.IntentReview:
		message := map[string]any{"user_id": t.defaultUser}
		if topic := strings.TrimSpace(deref(req.Topic)); topic != "" {
			message["topic"] = topic
		}
		result, err := t.dispatch(ctx, domain.AgentReview, reviewEndpoint, message)
		if err != nil {
			return domain.AskResponse{}, err
		}
		return domain.AskResponse{QuestionType: intent, Response: result, RoutedTo: RoutedReview}, nil

	default:
		answer := t.Explain(ctx, question, strings.TrimSpace(deref(req.Topic)))
		return domain.AskResponse{QuestionType: domain.IntentExplanation, Response: answer, RoutedTo: RoutedOpenAI}, nil
	}
}

// Explain answers directly through the generation policy.
func (t *Teacher) Explain(ctx context.Context, question, topic string) domain.ExplanationAnswer {
	req := generation.Request{
		Agent:  string(domain.AgentTeacher),
		System: t.persona,
		User:   templates.ExplanationPrompt(question, topic),
	}
	res := generation.Resolve(ctx, t.generation, req,
		func(text string) (string, error) { return text, nil },
		func(d generation.Degraded) string {
			switch {
			case d.Source == domain.SourceError:
				return templates.ErrorAnswer(question, d.Message())
			case d.Cause == generation.CauseNoBackend:
				return templates.NoBackendAnswer(question)
			default:
				return templates.NoCredentialAnswer(question)
			}
		})

	answer := domain.ExplanationAnswer{
		Answer: res.Value,
		Model:  res.Model,
		Usage:  res.Usage,
		Source: res.Source,
	}
	if res.Degraded != nil {
		answer.Model = templates.NoModel
		if res.Degraded.Source == domain.SourceError {
			answer.Error = res.Degraded.Message()
		}
	}
	return answer
}

func (t *Teacher) dispatch(ctx context.Context, receiver domain.AgentID, endpoint string, message map[string]any) (json.RawMessage, error) {
	if t.channels != nil {
		if err := t.channels.Check(string(domain.AgentTeacher), string(receiver)); err != nil {
			return nil, err
		}
	}
	env := a2a.NewEnvelope(domain.AgentTeacher, receiver, message, "")
	t.logger.Info("dispatching task",
		zap.String("task_id", env.TaskID),
		zap.String("receiver", env.Receiver),
		zap.String("endpoint", endpoint))
	reply, err := t.relay.Send(ctx, endpoint, env)
	if err != nil {
		return nil, err
	}
	return reply.Payload(), nil
}
