// Package notes is the note-retrieval capability consulted by the review
// agent. Sources are either the local sqlite store or a remote tool endpoint.
package notes

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

	"go.uber.org/zap"

	"learning_agents/internal/domain"
)

const (
	ToolPastNotes    = "past_notes"
	DefaultLimit     = 10
	DefaultTimeout   = 10 * time.Second
	maxToolBodyBytes = 1024 * 1024
)

var ErrToolFailed = errors.New("note tool call failed")

type Source interface {
	PastNotes(ctx context.Context, userID, topic string, limit int) (domain.PastNotesData, error)
}

// ToolCall is the request body accepted by a remote tool endpoint.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments PastNotesQuery `json:"arguments"`
}

type PastNotesQuery struct {
	UserID string  `json:"user_id"`
	Topic  *string `json:"topic"`
	Limit  int     `json:"limit"`
}

type Client struct {
	source  Source
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(source Source, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{source: source, timeout: timeout, logger: logger}
}

// PastNotes fetches notes and wraps them in a tool result.
func (c *Client) PastNotes(ctx context.Context, userID, topic string, limit int) (domain.ToolResult, error) {
	if c == nil || c.source == nil {
		return domain.ToolResult{}, fmt.Errorf("%w: no note source configured", ErrToolFailed)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("past notes call", zap.String("user_id", userID), zap.String("topic", topic), zap.Int("limit", limit))
	data, err := c.source.PastNotes(ctx, userID, topic, limit)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("%w: %v", ErrToolFailed, err)
	}
	return domain.ToolResult{
		Tool:    ToolPastNotes,
		Status:  domain.ToolStatusSuccess,
		Data:    data,
		Message: fmt.Sprintf("Retrieved %d notes for user %s", data.Count, userID),
	}, nil
}

// HTTPSource calls a remote tool endpoint speaking ToolCall / ToolResult.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSource(endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPSource{endpoint: strings.TrimSpace(endpoint), client: client}
}

func (s *HTTPSource) PastNotes(ctx context.Context, userID, topic string, limit int) (domain.PastNotesData, error) {
	call := ToolCall{Tool: ToolPastNotes, Arguments: PastNotesQuery{UserID: userID, Limit: limit}}
	if topic != "" {
		call.Arguments.Topic = &topic
	}
	payload, err := json.Marshal(call)
	if err != nil {
		return domain.PastNotesData{}, fmt.Errorf("marshal tool call: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.PastNotesData{}, fmt.Errorf("create tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.PastNotesData{}, fmt.Errorf("call note tool: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.PastNotesData{}, fmt.Errorf("note tool status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result domain.ToolResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxToolBodyBytes)).Decode(&result); err != nil {
		return domain.PastNotesData{}, fmt.Errorf("decode tool result: %w", err)
	}
	if result.Status != domain.ToolStatusSuccess {
		return domain.PastNotesData{}, fmt.Errorf("note tool status %q: %s", result.Status, result.Message)
	}
	return result.Data, nil
}
