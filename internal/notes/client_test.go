package notes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learning_agents/internal/domain"
)

type fakeSource struct {
	data      domain.PastNotesData
	err       error
	gotLimit  int
	gotTopic  string
	blockTill bool
}

func (f *fakeSource) PastNotes(ctx context.Context, userID, topic string, limit int) (domain.PastNotesData, error) {
	f.gotLimit = limit
	f.gotTopic = topic
	if f.blockTill {
		<-ctx.Done()
		return domain.PastNotesData{}, ctx.Err()
	}
	if f.err != nil {
		return domain.PastNotesData{}, f.err
	}
	f.data.UserID = userID
	return f.data, nil
}

func TestClientWrapsSuccess(t *testing.T) {
	src := &fakeSource{data: domain.PastNotesData{Notes: []domain.Note{{ID: "n1"}}, Count: 1, TotalCount: 4}}
	c := NewClient(src, time.Second, zaptest.NewLogger(t))

	res, err := c.PastNotes(context.Background(), "u1", "Go", 0)
	require.NoError(t, err)
	assert.Equal(t, ToolPastNotes, res.Tool)
	assert.Equal(t, domain.ToolStatusSuccess, res.Status)
	assert.Equal(t, 1, res.Data.Count)
	assert.Equal(t, "Retrieved 1 notes for user u1", res.Message)
	assert.Equal(t, DefaultLimit, src.gotLimit)
	assert.Equal(t, "Go", src.gotTopic)
}

func TestClientErrors(t *testing.T) {
	_, err := NewClient(&fakeSource{err: errors.New("db closed")}, time.Second, nil).PastNotes(context.Background(), "u", "", 10)
	assert.ErrorIs(t, err, ErrToolFailed)

	_, err = NewClient(&fakeSource{blockTill: true}, 20*time.Millisecond, nil).PastNotes(context.Background(), "u", "", 10)
	assert.ErrorIs(t, err, ErrToolFailed)

	var nilClient *Client
	_, err = nilClient.PastNotes(context.Background(), "u", "", 10)
	assert.ErrorIs(t, err, ErrToolFailed)
}

func TestHTTPSource(t *testing.T) {
	var got ToolCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(domain.ToolResult{
			Tool:   ToolPastNotes,
			Status: domain.ToolStatusSuccess,
			Data:   domain.PastNotesData{UserID: "u1", Count: 2, TotalCount: 2, Notes: []domain.Note{{ID: "a"}, {ID: "b"}}},
		})
	}))
	defer srv.Close()

	data, err := NewHTTPSource(srv.URL, srv.Client()).PastNotes(context.Background(), "u1", "Python", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Count)
	assert.Equal(t, ToolPastNotes, got.Tool)
	assert.Equal(t, "u1", got.Arguments.UserID)
	require.NotNil(t, got.Arguments.Topic)
	assert.Equal(t, "Python", *got.Arguments.Topic)
	assert.Equal(t, 5, got.Arguments.Limit)
}

func TestHTTPSourceFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "status", handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{name: "not json", handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("nope")) }},
		{name: "tool error", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"tool":"past_notes","status":"error","message":"down"}`))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewHTTPSource(srv.URL, nil).PastNotes(context.Background(), "u", "", 10)
			assert.Error(t, err)
		})
	}
}
