package domain

import (
	"encoding/json"
	"time"
)

type AgentID string

const (
	AgentTeacher AgentID = "teacher"
	AgentQuiz    AgentID = "quiz"
	AgentReview  AgentID = "review"
)

var knownAgents = map[AgentID]struct{}{
	AgentTeacher: {},
	AgentQuiz:    {},
	AgentReview:  {},
}

// KnownAgent reports whether id belongs to the closed set of agents.
func KnownAgent(id string) bool {
	_, ok := knownAgents[AgentID(id)]
	return ok
}

type Intent string

const (
	IntentExplanation Intent = "explanation"
	IntentPractice    Intent = "practice"
	IntentReview      Intent = "review"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentExplanation, IntentPractice, IntentReview:
		return true
	}
	return false
}

type LogStatus string

const (
	LogStatusCompleted  LogStatus = "completed"
	LogStatusInProgress LogStatus = "in_progress"
	LogStatusFailed     LogStatus = "failed"
)

func (s LogStatus) Valid() bool {
	switch s {
	case LogStatusCompleted, LogStatusInProgress, LogStatusFailed:
		return true
	}
	return false
}

type ContentType string

const (
	ContentTypeQuiz           ContentType = "quiz"
	ContentTypeRecommendation ContentType = "recommendation"
)

type Source string

const (
	SourceOpenAI   Source = "openai"
	SourceFallback Source = "fallback"
	SourceError    Source = "error"
)

// TaskEnvelope is the message exchanged on every inter-agent call.
type TaskEnvelope struct {
	TaskID    string         `json:"task_id"`
	Sender    string         `json:"sender"`
	Receiver  string         `json:"receiver"`
	Message   map[string]any `json:"message"`
	Timestamp *string        `json:"timestamp"`
}

// TaskReply is what an agent sends back for a TaskEnvelope.
type TaskReply struct {
	TaskID   string          `json:"task_id"`
	Sender   string          `json:"sender"`
	Receiver string          `json:"receiver"`
	Result   json.RawMessage `json:"result"`
}

type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

const QuizOptionCount = 4

// Valid reports whether the question has text, exactly four options, and an
// answer equal to one of them.
func (q QuizQuestion) Valid() bool {
	if q.Question == "" || q.Answer == "" || len(q.Options) != QuizOptionCount {
		return false
	}
	for _, opt := range q.Options {
		if opt == q.Answer {
			return true
		}
	}
	return false
}

type QuizResult struct {
	Questions []QuizQuestion `json:"questions"`
}

type LearningLogEntry struct {
	Topic     string    `json:"topic"`
	Timestamp string    `json:"timestamp"`
	Score     *float64  `json:"score,omitempty"`
	Status    LogStatus `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
}

type LearningLogSet struct {
	UserID  string             `json:"user_id"`
	Entries []LearningLogEntry `json:"entries"`
}

type ReviewSummary struct {
	RecentTopics   []string `json:"recent_topics"`
	WeakAreas      []string `json:"weak_areas"`
	LastStudied    *string  `json:"last_studied"`
	TotalSessions  int      `json:"total_sessions"`
	PastNotesCount int      `json:"past_notes_count"`
}

type ReviewContent struct {
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Topic       string      `json:"topic"`
	ActionURL   string      `json:"action_url,omitempty"`
}

type ReviewResult struct {
	Summary        ReviewSummary   `json:"summary"`
	ReviewContents []ReviewContent `json:"review_contents"`
}

type AskRequest struct {
	Question string  `json:"question"`
	Topic    *string `json:"topic,omitempty"`
	Subject  *string `json:"subject,omitempty"`
}

type AskResponse struct {
	QuestionType Intent `json:"question_type"`
	Response     any    `json:"response"`
	RoutedTo     string `json:"routed_to,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ExplanationAnswer struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
	Usage  *Usage `json:"usage,omitempty"`
	Source Source `json:"source"`
	Error  string `json:"error,omitempty"`
}

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
}

type PastNotesData struct {
	UserID     string  `json:"user_id"`
	Topic      *string `json:"topic"`
	Notes      []Note  `json:"notes"`
	Count      int     `json:"count"`
	TotalCount int     `json:"total_count"`
}

// ToolResult is the reply shape of the note-retrieval capability.
type ToolResult struct {
	Tool    string        `json:"tool"`
	Status  string        `json:"status"`
	Data    PastNotesData `json:"data"`
	Message string        `json:"message,omitempty"`
}

const ToolStatusSuccess = "success"

type RelayJournalEntry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Sender     string    `json:"sender"`
	Receiver   string    `json:"receiver"`
	Endpoint   string    `json:"endpoint"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
