package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"learning_agents/internal/domain"
	"learning_agents/internal/metrics"
)

const (
	DefaultRelayTimeout       = 30 * time.Second
	maxRelayResponseBytes     = 8 * 1024 * 1024
	maxRelayErrorBodyReadSize = 64 * 1024
)

type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindRemoteRejected Kind = "remote_rejected"
	KindUnreachable    Kind = "unreachable"
	KindInternal       Kind = "internal"
)

// RelayError is returned for every failed Send. Callers branch on Kind.
type RelayError struct {
	Kind       Kind
	TaskID     string
	Sender     string
	Receiver   string
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *RelayError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("agent relay timed out: %s", e.Receiver)
	case KindRemoteRejected:
		return fmt.Sprintf("agent relay rejected: %s (%d)", e.Receiver, e.StatusCode)
	case KindUnreachable:
		return fmt.Sprintf("agent relay failed: %s (%v)", e.Receiver, e.Err)
	default:
		return fmt.Sprintf("agent relay internal error: %s (%v)", e.Receiver, e.Err)
	}
}

func (e *RelayError) Unwrap() error { return e.Err }

// HTTPStatus is the status a caller should surface for this failure.
func (e *RelayError) HTTPStatus() int {
	switch e.Kind {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindRemoteRejected:
		if e.StatusCode > 0 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case KindUnreachable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err is a *RelayError of the given kind.
func IsKind(err error, kind Kind) bool {
	var relayErr *RelayError
	return errors.As(err, &relayErr) && relayErr.Kind == kind
}

// Journal records relay attempts. The sqlite store implements it.
type Journal interface {
	RecordRelay(ctx context.Context, entry domain.RelayJournalEntry) error
}

// Reply is the parsed response of a relayed task.
type Reply struct {
	domain.TaskReply
	Raw json.RawMessage
}

// Payload returns the reply's result, or the whole body when the receiver
// did not answer with an envelope.
func (r Reply) Payload() json.RawMessage {
	if len(r.Result) > 0 && string(r.Result) != "null" {
		return r.Result
	}
	return r.Raw
}

type RelayConfig struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Journal Journal
}

type Relay struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
	journal Journal
}

func NewRelay(cfg RelayConfig) *Relay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRelayTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
		metrics: cfg.Metrics,
		journal: cfg.Journal,
	}
}

// Close drops idle keep-alive connections.
func (r *Relay) Close() {
	r.client.CloseIdleConnections()
}

// Send posts env to {base_url}{endpoint} and returns the parsed reply.
// Failures are *RelayError and are never retried.
func (r *Relay) Send(ctx context.Context, endpoint string, env domain.TaskEnvelope) (Reply, error) {
	started := time.Now()
	fields := []zap.Field{
		zap.String("task_id", env.TaskID),
		zap.String("sender", env.Sender),
		zap.String("receiver", env.Receiver),
		zap.String("endpoint", endpoint),
	}
	r.logger.Info("relay task send", fields...)

	reply, status, err := r.do(ctx, endpoint, env)
	elapsed := time.Since(started)
	outcome := "ok"
	if err != nil {
		outcome = string(err.Kind)
		r.logger.Error("relay task failed", append(fields,
			zap.String("kind", string(err.Kind)),
			zap.Int("status", err.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.Error(err.Err))...)
	} else {
		r.logger.Info("relay task done", append(fields, zap.Duration("elapsed", elapsed))...)
	}
	r.metrics.ObserveRelay(env.Receiver, outcome, elapsed)
	r.record(ctx, env, endpoint, outcome, status, elapsed, err)

	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (r *Relay) do(ctx context.Context, endpoint string, env domain.TaskEnvelope) (Reply, int, *RelayError) {
	fail := func(kind Kind, status int, body string, err error) (Reply, int, *RelayError) {
		return Reply{}, status, &RelayError{
			Kind:       kind,
			TaskID:     env.TaskID,
			Sender:     env.Sender,
			Receiver:   env.Receiver,
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       body,
			Err:        err,
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fail(KindInternal, 0, "", fmt.Errorf("marshal envelope: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(KindInternal, 0, "", fmt.Errorf("create relay request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fail(KindTimeout, 0, "", err)
		}
		return fail(KindUnreachable, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRelayErrorBodyReadSize))
		return fail(KindRemoteRejected, resp.StatusCode, strings.TrimSpace(string(body)),
			fmt.Errorf("remote status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return fail(KindTimeout, resp.StatusCode, "", err)
		}
		return fail(KindUnreachable, resp.StatusCode, "", fmt.Errorf("read relay response: %w", err))
	}
	var reply domain.TaskReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fail(KindInternal, resp.StatusCode, trim(string(raw), 512), fmt.Errorf("decode relay response: %w", err))
	}
	return Reply{TaskReply: reply, Raw: raw}, resp.StatusCode, nil
}

func (r *Relay) record(ctx context.Context, env domain.TaskEnvelope, endpoint, outcome string, status int, elapsed time.Duration, relayErr *RelayError) {
	if r.journal == nil {
		return
	}
	entry := domain.RelayJournalEntry{
		TaskID:     env.TaskID,
		Sender:     env.Sender,
		Receiver:   env.Receiver,
		Endpoint:   endpoint,
		Outcome:    outcome,
		StatusCode: status,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if relayErr != nil {
		entry.Error = relayErr.Error()
	}
	// The caller's context may already be done after a timeout.
	if err := r.journal.RecordRelay(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("relay journal write failed", zap.String("task_id", env.TaskID), zap.Error(err))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func trim(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
