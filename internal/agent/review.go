package agent

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"learning_agents/internal/a2a"
	"learning_agents/internal/domain"
	"learning_agents/internal/templates"
)

const (
	WeakScoreThreshold = 0.6
	RecentWindow       = 5
	PastNotesLimit     = 10
	MaxReviewContents  = 2
	DefaultReviewTopic = "Python basics"
	reviewEndpoint     = "/review/review"
)

// LogStore loads a user's learning log. Implementations return an error for
// missing or unreadable logs; the review agent substitutes mock data.
type LogStore interface {
	Load(userID string) (domain.LearningLogSet, error)
}

type NoteRetriever interface {
	PastNotes(ctx context.Context, userID, topic string, limit int) (domain.ToolResult, error)
}

type ReviewRequest struct {
	UserID string  `json:"user_id"`
	Topic  *string `json:"topic,omitempty"`
}

// ParseReviewTask reads a review request from an envelope message. user_id
// is required.
func ParseReviewTask(message map[string]any) (ReviewRequest, error) {
	userID, ok := a2a.StringField(message, "user_id")
	if !ok {
		return ReviewRequest{}, fmt.Errorf("%w: user_id is required", ErrInvalidTask)
	}
	return ReviewRequest{UserID: userID, Topic: optionalString(message, "topic")}, nil
}

type ReviewConfig struct {
	Logs      LogStore
	Notes     NoteRetriever
	Templates templates.Provider
	Channels  ChannelPolicy
	Logger    *zap.Logger
	Now       func() time.Time
}

type Review struct {
	logs      LogStore
	notes     NoteRetriever
	templates templates.Provider
	channels  ChannelPolicy
	logger    *zap.Logger
	now       func() time.Time
}

func NewReview(cfg ReviewConfig) *Review {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Templates
	if provider == nil {
		provider = templates.Canned{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Review{
		logs:      cfg.Logs,
		notes:     cfg.Notes,
		templates: provider,
		channels:  cfg.Channels,
		logger:    logger.With(zap.String("agent", string(domain.AgentReview))),
		now:       now,
	}
}

// Review loads the user's logs, summarises them and proposes follow-ups.
// It never fails: missing or corrupt logs are replaced by mock data.
func (r *Review) Review(ctx context.Context, userID string, topic *string) domain.ReviewResult {
	logs := r.loadLogs(userID)
	summary := r.AnalyzeLearningLogs(ctx, logs, userID, topic)
	contents := GenerateReviewContents(summary, deref(topic))
	r.logger.Info("review generated",
		zap.String("user_id", userID),
		zap.Int("sessions", summary.TotalSessions),
		zap.Int("weak_areas", len(summary.WeakAreas)),
		zap.Int("contents", len(contents)))
	return domain.ReviewResult{Summary: summary, ReviewContents: contents}
}

// HandleTask serves an envelope addressed to the review agent.
func (r *Review) HandleTask(ctx context.Context, env domain.TaskEnvelope) (domain.TaskReply, error) {
	if err := acceptEnvelope(env, domain.AgentReview, r.channels); err != nil {
		return domain.TaskReply{}, err
	}
	logger := r.logger.With(zap.String("task_id", env.TaskID), zap.String("sender", env.Sender))
	req, err := ParseReviewTask(env.Message)
	if err != nil {
		logger.Warn("review task rejected", zap.Error(err))
		return domain.TaskReply{}, err
	}
	logger.Info("review task received", zap.String("user_id", req.UserID), zap.String("topic", deref(req.Topic)))
	return a2a.NewReply(env, domain.AgentReview, r.Review(ctx, req.UserID, req.Topic))
}

func (r *Review) loadLogs(userID string) domain.LearningLogSet {
	if r.logs == nil {
		r.logger.Warn("no learning log store, using mock logs", zap.String("user_id", userID))
		return r.templates.MockLogs(userID, r.now())
	}
	logs, err := r.logs.Load(userID)
	if err != nil {
		r.logger.Warn("learning log unavailable, using mock logs", zap.String("user_id", userID), zap.Error(err))
		return r.templates.MockLogs(userID, r.now())
	}
	return logs
}

type timedEntry struct {
	entry domain.LearningLogEntry
	ts    float64
	ok    bool
}

// AnalyzeLearningLogs summarises a log set. Notes are fetched best effort;
// any failure leaves PastNotesCount at zero.
func (r *Review) AnalyzeLearningLogs(ctx context.Context, logs domain.LearningLogSet, userID string, topic *string) domain.ReviewSummary {
	summary := domain.ReviewSummary{RecentTopics: []string{}, WeakAreas: []string{}}
	if len(logs.Entries) == 0 {
		return summary
	}

	timed := make([]timedEntry, 0, len(logs.Entries))
	for _, e := range logs.Entries {
		ts, err := strconv.ParseFloat(strings.TrimSpace(e.Timestamp), 64)
		ok := err == nil && !math.IsNaN(ts) && !math.IsInf(ts, 0)
		if !ok {
			r.logger.Warn("unparseable log timestamp", zap.String("user_id", userID), zap.String("timestamp", e.Timestamp))
			ts = 0
		}
		timed = append(timed, timedEntry{entry: e, ts: ts, ok: ok})
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].ts > timed[j].ts })

	seen := make(map[string]struct{}, RecentWindow)
	for i := 0; i < len(timed) && i < RecentWindow; i++ {
		t := timed[i].entry.Topic
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		summary.RecentTopics = append(summary.RecentTopics, t)
	}

	summary.WeakAreas = weakAreas(logs.Entries)

	if newest := timed[0]; newest.ok {
		sec, frac := math.Modf(newest.ts)
		last := time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339)
		summary.LastStudied = &last
	}
	summary.TotalSessions = len(logs.Entries)
	summary.PastNotesCount = r.pastNotesCount(ctx, userID, deref(topic))
	return summary
}

func (r *Review) pastNotesCount(ctx context.Context, userID, topic string) int {
	if r.notes == nil {
		return 0
	}
	res, err := r.notes.PastNotes(ctx, userID, topic, PastNotesLimit)
	if err != nil {
		r.logger.Error("past notes lookup failed", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	if res.Status != domain.ToolStatusSuccess {
		r.logger.Warn("past notes lookup not successful", zap.String("user_id", userID), zap.String("status", res.Status))
		return 0
	}
	return res.Data.Count
}

// weakAreas lists topics whose mean score is below the threshold, in the
// order the topics first appear in the log.
func weakAreas(entries []domain.LearningLogEntry) []string {
	type agg struct {
		sum float64
		n   int
	}
	order := make([]string, 0)
	scores := make(map[string]*agg)
	for _, e := range entries {
		if e.Score == nil {
			continue
		}
		a, ok := scores[e.Topic]
		if !ok {
			a = &agg{}
			scores[e.Topic] = a
			order = append(order, e.Topic)
		}
		a.sum += *e.Score
		a.n++
	}
	weak := make([]string, 0)
	for _, t := range order {
		avg := scores[t].sum / float64(scores[t].n)
		if avg < WeakScoreThreshold {
			weak = append(weak, fmt.Sprintf("%s (平均スコア: %.2f)", t, avg))
		}
	}
	return weak
}

// WeakTopic strips the score suffix from a weak-area label.
func WeakTopic(label string) string {
	topic, _, _ := strings.Cut(label, " (")
	return topic
}

// GenerateReviewContents proposes at most two follow-ups for a summary.
func GenerateReviewContents(summary domain.ReviewSummary, requestedTopic string) []domain.ReviewContent {
	requestedTopic = strings.TrimSpace(requestedTopic)
	contents := make([]domain.ReviewContent, 0, MaxReviewContents)
	has := func(topic string) bool {
		for _, c := range contents {
			if c.Topic == topic {
				return true
			}
		}
		return false
	}

	if requestedTopic != "" {
		contents = append(contents, domain.ReviewContent{
			Type:        domain.ContentTypeQuiz,
			Title:       requestedTopic + "の復習クイズ",
			Description: requestedTopic + "に関する理解度を確認するためのクイズです。",
			Topic:       requestedTopic,
			ActionURL:   actionURL(quizEndpoint, requestedTopic),
		})
		if len(summary.WeakAreas) > 0 {
			if weak := WeakTopic(summary.WeakAreas[0]); weak != requestedTopic {
				contents = append(contents, domain.ReviewContent{
					Type:        domain.ContentTypeRecommendation,
					Title:       weak + "をもう一度学習",
					Description: "過去のスコアが低かったため、" + weak + "の復習をおすすめします。",
					Topic:       weak,
					ActionURL:   actionURL(askEndpoint, weak),
				})
			}
		}
	} else {
		if len(summary.WeakAreas) > 0 {
			weak := WeakTopic(summary.WeakAreas[0])
			contents = append(contents, domain.ReviewContent{
				Type:        domain.ContentTypeQuiz,
				Title:       weak + "の復習クイズ",
				Description: "過去のスコアが低かったため、" + weak + "の復習をおすすめします。",
				Topic:       weak,
				ActionURL:   actionURL(quizEndpoint, weak),
			})
		}
		for _, topic := range summary.RecentTopics {
			if has(topic) {
				continue
			}
			contents = append(contents, domain.ReviewContent{
				Type:        domain.ContentTypeRecommendation,
				Title:       topic + "の復習",
				Description: "最近学習した" + topic + "について、もう一度確認することをおすすめします。",
				Topic:       topic,
				ActionURL:   actionURL(askEndpoint, topic),
			})
			break
		}
	}

	if len(contents) == 0 {
		topic := DefaultReviewTopic
		if len(summary.RecentTopics) > 0 {
			topic = summary.RecentTopics[0]
		}
		contents = append(contents, domain.ReviewContent{
			Type:        domain.ContentTypeRecommendation,
			Title:       "学習を継続しましょう",
			Description: "新しいトピックの学習をおすすめします。",
			Topic:       topic,
			ActionURL:   actionURL(askEndpoint, topic),
		})
	}
	if len(contents) > MaxReviewContents {
		contents = contents[:MaxReviewContents]
	}
	return contents
}

func actionURL(path, topic string) string {
	return path + "?" + url.Values{"topic": {topic}}.Encode()
}

