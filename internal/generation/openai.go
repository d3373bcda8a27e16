package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"learning_agents/internal/domain"
)

const (
	defaultModel             = "gpt-3.5-turbo"
	defaultTemperature       = 0.7
	defaultAPITimeout        = 60 * time.Second
	maxResponseBytes         = 4 * 1024 * 1024
	maxHTTPErrorBodyReadSize = 64 * 1024
)

type OpenAIConfig struct {
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	Logger      *zap.Logger
	Client      *http.Client
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
// It makes exactly one attempt per Generate call.
type OpenAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	logger      *zap.Logger
	client      *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("empty API endpoint")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid API endpoint %q: %w", endpoint, err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		endpoint:    endpoint,
		model:       model,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		temperature: temperature,
		logger:      logger,
		client:      client,
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) Outcome {
	if c.apiKey == "" {
		return Unavailable{Cause: CauseNoCredential, Reason: "api key is not configured"}
	}

	payload := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	if req.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Unavailable{Cause: CauseCallFailed, Reason: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Unavailable{Cause: CauseCallFailed, Reason: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("chat completion request", zap.String("agent", req.Agent), zap.String("model", c.model), zap.Bool("json", req.JSON))
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Unavailable{Cause: CauseCallFailed, Reason: "chat completion request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTTPErrorBodyReadSize))
		return Unavailable{
			Cause:  CauseCallFailed,
			Reason: "chat completion rejected",
			Err:    apiHTTPError{statusCode: resp.StatusCode, body: strings.TrimSpace(string(raw))},
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return Unavailable{Cause: CauseCallFailed, Reason: "decode chat completion", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return Invalid{Reason: "no choices in completion"}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Invalid{Reason: "empty completion text"}
	}

	completion := Completion{Text: text, Model: parsed.Model}
	if completion.Model == "" {
		completion.Model = c.model
	}
	if parsed.Usage != nil {
		completion.Usage = &domain.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return Success{Completion: completion}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiHTTPError struct {
	statusCode int
	body       string
}

func (e apiHTTPError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("chat completions status=%d", e.statusCode)
	}
	return fmt.Sprintf("chat completions status=%d body=%s", e.statusCode, e.body)
}
