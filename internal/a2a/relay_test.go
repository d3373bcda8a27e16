package a2a

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"learning_agents/internal/domain"
	"learning_agents/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memJournal struct {
	mu      sync.Mutex
	entries []domain.RelayJournalEntry
}

func (j *memJournal) RecordRelay(_ context.Context, entry domain.RelayJournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) all() []domain.RelayJournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.RelayJournalEntry(nil), j.entries...)
}

func newTestRelay(t *testing.T, baseURL string, timeout time.Duration, journal Journal) *Relay {
	t.Helper()
	r := NewRelay(RelayConfig{
		BaseURL: baseURL,
		Timeout: timeout,
		Logger:  zaptest.NewLogger(t),
		Metrics: metrics.New(),
		Journal: journal,
	})
	t.Cleanup(r.Close)
	return r
}

func TestSendSuccess(t *testing.T) {
	var got domain.TaskEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quiz/generate-quiz", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task_id":  got.TaskID,
			"sender":   "quiz",
			"receiver": got.Sender,
			"result":   map[string]any{"questions": []any{}},
		})
	}))
	defer srv.Close()

	journal := &memJournal{}
	relay := newTestRelay(t, srv.URL+"/", time.Second, journal)
	env := NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, map[string]any{"topic": "Go"}, "")

	reply, err := relay.Send(context.Background(), "/quiz/generate-quiz", env)
	require.NoError(t, err)

	assert.Equal(t, env.TaskID, got.TaskID)
	assert.Equal(t, "Go", got.Message["topic"])
	assert.Equal(t, env.TaskID, reply.TaskID)
	assert.Equal(t, "quiz", reply.Sender)
	assert.JSONEq(t, `{"questions":[]}`, string(reply.Payload()))

	entries := journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Outcome)
	assert.Equal(t, http.StatusOK, entries[0].StatusCode)
}

func TestSendPayloadWithoutResultUsesWholeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"questions":[{"question":"q"}]}`))
	}))
	defer srv.Close()

	relay := newTestRelay(t, srv.URL, time.Second, nil)
	reply, err := relay.Send(context.Background(), "/quiz/generate-quiz",
		NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, nil, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"questions":[{"question":"q"}]}`, string(reply.Payload()))
}

func TestSendRemoteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"topic is required"}`))
	}))
	defer srv.Close()

	journal := &memJournal{}
	relay := newTestRelay(t, srv.URL, time.Second, journal)
	_, err := relay.Send(context.Background(), "/quiz/generate-quiz",
		NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, nil, "task-400"))

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, KindRemoteRejected, relayErr.Kind)
	assert.Equal(t, http.StatusBadRequest, relayErr.StatusCode)
	assert.Equal(t, http.StatusBadRequest, relayErr.HTTPStatus())
	assert.Equal(t, "task-400", relayErr.TaskID)
	assert.Contains(t, relayErr.Body, "topic is required")
	assert.Contains(t, relayErr.Error(), "quiz")

	entries := journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(KindRemoteRejected), entries[0].Outcome)
}

func TestSendUnreachableDistinctFromTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	relay := newTestRelay(t, "http://"+closedAddr, time.Second, nil)
	_, err = relay.Send(context.Background(), "/review/review",
		NewEnvelope(domain.AgentTeacher, domain.AgentReview, nil, ""))

	require.True(t, IsKind(err, KindUnreachable), "got %v", err)
	require.False(t, IsKind(err, KindTimeout))
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, http.StatusServiceUnavailable, relayErr.HTTPStatus())
	assert.Equal(t, "review", relayErr.Receiver)
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	relay := newTestRelay(t, srv.URL, 100*time.Millisecond, nil)
	_, err := relay.Send(context.Background(), "/quiz/generate-quiz",
		NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, nil, ""))

	require.True(t, IsKind(err, KindTimeout), "got %v", err)
	require.False(t, IsKind(err, KindUnreachable))
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, http.StatusGatewayTimeout, relayErr.HTTPStatus())
}

func TestSendMalformedReplyIsInternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	relay := newTestRelay(t, srv.URL, time.Second, nil)
	_, err := relay.Send(context.Background(), "/quiz/generate-quiz",
		NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, nil, ""))

	require.True(t, IsKind(err, KindInternal), "got %v", err)
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, http.StatusInternalServerError, relayErr.HTTPStatus())
}

func TestRelayErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		err  RelayError
		want int
	}{
		{err: RelayError{Kind: KindTimeout}, want: 504},
		{err: RelayError{Kind: KindUnreachable}, want: 503},
		{err: RelayError{Kind: KindRemoteRejected, StatusCode: 422}, want: 422},
		{err: RelayError{Kind: KindRemoteRejected}, want: 502},
		{err: RelayError{Kind: KindInternal}, want: 500},
	}
	for _, tc := range tests {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("HTTPStatus(%s)=%d want=%d", tc.err.Kind, got, tc.want)
		}
	}
}
