// Package chatclient talks to a running teacher agent over HTTP. It backs the
// terminal chat client and the learnd ask command.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"learning_agents/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// QuickAction is a canned question offered as a one-key shortcut.
type QuickAction struct {
	Label    string
	Question string
	Topic    string
}

var (
	PracticeAction = QuickAction{Label: "練習する", Question: "英語の冠詞の練習問題を出して", Topic: "English articles"}
	ReviewAction   = QuickAction{Label: "復習する", Question: "前回の内容を復習したい", Topic: "Python decorators"}
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Answer is a decoded /teacher/ask response. Exactly one of Quiz, Review or
// Explanation is set, matching QuestionType.
type Answer struct {
	QuestionType domain.Intent
	RoutedTo     string
	Raw          json.RawMessage

	Quiz        *domain.QuizResult
	Review      *domain.ReviewResult
	Explanation *domain.ExplanationAnswer
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Ask posts a question. Empty topic and subject are omitted.
func (c *Client) Ask(ctx context.Context, question, topic, subject string) (Answer, error) {
	req := domain.AskRequest{Question: question}
	if topic = strings.TrimSpace(topic); topic != "" {
		req.Topic = &topic
	}
	if subject = strings.TrimSpace(subject); subject != "" {
		req.Subject = &subject
	}

	var envelope struct {
		QuestionType domain.Intent   `json:"question_type"`
		Response     json.RawMessage `json:"response"`
		RoutedTo     string          `json:"routed_to"`
	}
	if err := c.postJSON(ctx, "/teacher/ask", req, &envelope); err != nil {
		return Answer{}, err
	}
	answer := Answer{QuestionType: envelope.QuestionType, RoutedTo: envelope.RoutedTo, Raw: envelope.Response}

	var err error
	switch envelope.QuestionType {
	case domain.IntentPractice:
		answer.Quiz = &domain.QuizResult{}
		err = json.Unmarshal(envelope.Response, answer.Quiz)
	case domain.IntentReview:
		answer.Review = &domain.ReviewResult{}
		err = json.Unmarshal(envelope.Response, answer.Review)
	default:
		answer.Explanation = &domain.ExplanationAnswer{}
		err = json.Unmarshal(envelope.Response, answer.Explanation)
	}
	if err != nil {
		return Answer{}, fmt.Errorf("decode %s response: %w", envelope.QuestionType, err)
	}
	return answer, nil
}

// Run asks a quick action's canned question.
func (c *Client) Run(ctx context.Context, action QuickAction) (Answer, error) {
	return c.Ask(ctx, action.Question, action.Topic, "")
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.getJSON(ctx, "/healthz", &out)
}

// WaitHealthy polls /healthz until it answers or timeout elapses.
func (c *Client) WaitHealthy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s/healthz", c.baseURL)
		case <-ticker.C:
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// IsStatus reports whether err is an HTTPError with the given code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}
