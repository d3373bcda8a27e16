package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"learning_agents/internal/a2a"
	"learning_agents/internal/domain"
	"learning_agents/internal/generation"
	"learning_agents/internal/templates"
)

const (
	DefaultLevel        = "intermediate"
	DefaultQuestionType = "multiple_choice"
	MaxQuizQuestions    = 3
	maxFallbackQuestion = 2
	quizEndpoint        = "/quiz/generate-quiz"
)

const quizSchemaInstructions = `指定されたトピック、難易度、問題タイプに基づいて、
以下のJSON形式でクイズを生成してください。

形式:
{
  "questions": [
    {
      "question": "問題文",
      "options": ["選択肢1", "選択肢2", "選択肢3", "選択肢4"],
      "answer": "正解の選択肢"
    }
  ]
}

重要:
- 選択肢は4つにしてください
- answerフィールドには、正解の選択肢のテキストをそのまま記載してください
- 選択肢の順序はランダムにしてください
- 問題は実践的で理解を深められる内容にしてください
- JSONのみを返答し、余計な説明は不要です`

type QuizRequest struct {
	Topic        string `json:"topic"`
	Level        string `json:"level,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
}

func (r QuizRequest) withDefaults() QuizRequest {
	r.Topic = strings.TrimSpace(r.Topic)
	if strings.TrimSpace(r.Level) == "" {
		r.Level = DefaultLevel
	}
	if strings.TrimSpace(r.QuestionType) == "" {
		r.QuestionType = DefaultQuestionType
	}
	return r
}

// ParseQuizTask reads a quiz request from an envelope message. topic is
// required.
func ParseQuizTask(message map[string]any) (QuizRequest, error) {
	topic, ok := a2a.StringField(message, "topic")
	if !ok {
		return QuizRequest{}, fmt.Errorf("%w: topic is required", ErrInvalidTask)
	}
	req := QuizRequest{Topic: topic}
	req.Level, _ = a2a.StringField(message, "level")
	req.QuestionType, _ = a2a.StringField(message, "question_type")
	return req.withDefaults(), nil
}

type QuizConfig struct {
	Generation generation.Policy
	Persona    string
	Templates  templates.Provider
	Channels   ChannelPolicy
	Logger     *zap.Logger
	// Intn returns a value in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

type Quiz struct {
	generation generation.Policy
	persona    string
	templates  templates.Provider
	channels   ChannelPolicy
	logger     *zap.Logger
	intn       func(int) int
}

func NewQuiz(cfg QuizConfig) *Quiz {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	persona := strings.TrimSpace(cfg.Persona)
	if persona == "" {
		persona = "あなたは優秀なクイズ作成者です。"
	}
	provider := cfg.Templates
	if provider == nil {
		provider = templates.Canned{}
	}
	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return &Quiz{
		generation: cfg.Generation,
		persona:    persona,
		templates:  provider,
		channels:   cfg.Channels,
		logger:     logger.With(zap.String("agent", string(domain.AgentQuiz))),
		intn:       intn,
	}
}

// Generate always returns between one and MaxQuizQuestions valid questions.
func (q *Quiz) Generate(ctx context.Context, req QuizRequest) domain.QuizResult {
	req = req.withDefaults()
	count := 1 + q.intn(MaxQuizQuestions)

	genReq := generation.Request{
		Agent:  string(domain.AgentQuiz),
		System: q.persona + "\n\n" + quizSchemaInstructions,
		User: fmt.Sprintf("トピック: %s\n難易度: %s\n問題タイプ: %s\n問題数: %d問\n\n上記の条件でクイズを生成してください。",
			req.Topic, req.Level, req.QuestionType, count),
		JSON: true,
	}
	res := generation.Resolve(ctx, q.generation, genReq, parseQuizQuestions, func(generation.Degraded) []domain.QuizQuestion {
		return q.fallback(req.Topic)
	})
	q.logger.Info("quiz generated",
		zap.String("topic", req.Topic),
		zap.String("level", req.Level),
		zap.String("source", string(res.Source)),
		zap.Int("questions", len(res.Value)))
	return domain.QuizResult{Questions: res.Value}
}

// HandleTask serves an envelope addressed to the quiz agent.
func (q *Quiz) HandleTask(ctx context.Context, env domain.TaskEnvelope) (domain.TaskReply, error) {
	if err := acceptEnvelope(env, domain.AgentQuiz, q.channels); err != nil {
		return domain.TaskReply{}, err
	}
	logger := q.logger.With(zap.String("task_id", env.TaskID), zap.String("sender", env.Sender))
	req, err := ParseQuizTask(env.Message)
	if err != nil {
		logger.Warn("quiz task rejected", zap.Error(err))
		return domain.TaskReply{}, err
	}
	logger.Info("quiz task received", zap.String("topic", req.Topic))
	return a2a.NewReply(env, domain.AgentQuiz, q.Generate(ctx, req))
}

// fallback samples one or two distinct questions from the template pool.
func (q *Quiz) fallback(topic string) []domain.QuizQuestion {
	pool := q.templates.QuizPool(topic)
	if len(pool) == 0 {
		pool = templates.QuizPool(topic)
	}
	n := 1 + q.intn(maxFallbackQuestion)
	if n > len(pool) {
		n = len(pool)
	}
	picked := append([]domain.QuizQuestion(nil), pool...)
	for i := 0; i < n; i++ {
		j := i + q.intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:n]
}

var errNoUsableQuestions = errors.New("no usable questions in completion")

func parseQuizQuestions(text string) ([]domain.QuizQuestion, error) {
	var payload domain.QuizResult
	if err := generation.DecodeJSON(text, &payload); err != nil {
		return nil, err
	}
	valid := make([]domain.QuizQuestion, 0, len(payload.Questions))
	for _, item := range payload.Questions {
		item.Question = strings.TrimSpace(item.Question)
		item.Answer = strings.TrimSpace(item.Answer)
		for i := range item.Options {
			item.Options[i] = strings.TrimSpace(item.Options[i])
		}
		if !item.Valid() {
			continue
		}
		valid = append(valid, item)
		if len(valid) == MaxQuizQuestions {
			break
		}
	}
	if len(valid) == 0 {
		return nil, errNoUsableQuestions
	}
	return valid, nil
}
