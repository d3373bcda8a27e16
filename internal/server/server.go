// Package server exposes the three agents, the note tool and the operator
// endpoints on one HTTP mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"learning_agents/internal/a2a"
	"learning_agents/internal/agent"
	"learning_agents/internal/domain"
	"learning_agents/internal/metrics"
	"learning_agents/internal/notes"
	"learning_agents/internal/policy"
)

const (
	maxBodyBytes        = 1024 * 1024
	defaultJournalLimit = 50
)

type JournalReader interface {
	ListRelayJournal(ctx context.Context, limit int) ([]domain.RelayJournalEntry, error)
}

// NoteTool answers past_notes tool calls. *notes.Client implements it.
type NoteTool interface {
	PastNotes(ctx context.Context, userID, topic string, limit int) (domain.ToolResult, error)
}

type Config struct {
	Teacher    *agent.Teacher
	Quiz       *agent.Quiz
	Review     *agent.Review
	Journal    JournalReader
	Notes      NoteTool
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	ConfigPath string
	Now        func() time.Time
}

type Server struct {
	teacher    *agent.Teacher
	quiz       *agent.Quiz
	review     *agent.Review
	journal    JournalReader
	notes      NoteTool
	metrics    *metrics.Metrics
	logger     *zap.Logger
	configPath string
	now        func() time.Time
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		teacher:    cfg.Teacher,
		quiz:       cfg.Quiz,
		review:     cfg.Review,
		journal:    cfg.Journal,
		notes:      cfg.Notes,
		metrics:    cfg.Metrics,
		logger:     logger,
		configPath: cfg.ConfigPath,
		now:        now,
	}
}

// Handler builds the routed mux wrapped in access logging and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleConfig)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /teacher/{$}", agentStatus(domain.AgentTeacher))
	mux.HandleFunc("POST /teacher/ask", s.handleAsk)

	mux.HandleFunc("GET /quiz/{$}", agentStatus(domain.AgentQuiz))
	mux.HandleFunc("POST /quiz/generate-quiz", s.handleQuizTask)
	mux.HandleFunc("POST /quiz/generate-quiz-legacy", s.handleQuizLegacy)

	mux.HandleFunc("GET /review/{$}", agentStatus(domain.AgentReview))
	mux.HandleFunc("POST /review/review", s.handleReviewTask)
	mux.HandleFunc("POST /review/review-legacy", s.handleReviewLegacy)

	mux.HandleFunc("GET /a2a/journal", s.handleJournal)
	mux.HandleFunc("POST /tools/call", s.handleToolCall)

	return s.loggingMiddleware(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Learning Agents API",
		"status":  "running",
		"endpoints": map[string]string{
			"teacher": "/teacher",
			"quiz":    "/quiz",
			"review":  "/review",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"path": s.configPath})
}

func agentStatus(id domain.AgentID) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"agent": string(id), "status": "ready"})
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.teacher.Ask(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuizTask(w http.ResponseWriter, r *http.Request) {
	env, err := a2a.DecodeEnvelope(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reply, err := s.quiz.HandleTask(r.Context(), env)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleQuizLegacy(w http.ResponseWriter, r *http.Request) {
	var req agent.QuizRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, errors.New("topic is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.quiz.Generate(r.Context(), req))
}

func (s *Server) handleReviewTask(w http.ResponseWriter, r *http.Request) {
	env, err := a2a.DecodeEnvelope(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reply, err := s.review.HandleTask(r.Context(), env)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleReviewLegacy(w http.ResponseWriter, r *http.Request) {
	var req agent.ReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.review.Review(r.Context(), userID, req.Topic))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, []domain.RelayJournalEntry{})
		return
	}
	items, err := s.journal.ListRelayJournal(r.Context(), queryInt(r, "limit", defaultJournalLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []domain.RelayJournalEntry{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var call notes.ToolCall
	if err := decodeBody(r, &call); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if call.Tool != notes.ToolPastNotes {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown tool: %q", call.Tool))
		return
	}
	userID := strings.TrimSpace(call.Arguments.UserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if s.notes == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("note tool is not configured"))
		return
	}
	topic := ""
	if call.Arguments.Topic != nil {
		topic = strings.TrimSpace(*call.Arguments.Topic)
	}
	result, err := s.notes.PastNotes(r.Context(), userID, topic, call.Arguments.Limit)
	if err != nil {
		s.logger.Error("note tool call failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fail maps an agent or relay error to a status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	} else {
		s.logger.Warn("request rejected", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	writeError(w, code, err)
}

// StatusFor returns the HTTP status surfaced for err.
func StatusFor(err error) int {
	var relayErr *a2a.RelayError
	switch {
	case errors.As(err, &relayErr):
		return relayErr.HTTPStatus()
	case errors.Is(err, a2a.ErrInvalidEnvelope),
		errors.Is(err, agent.ErrInvalidTask),
		errors.Is(err, policy.ErrChannelDenied):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(rec.status), elapsed)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed))
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
