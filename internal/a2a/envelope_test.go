package a2a

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learning_agents/internal/domain"
)

func TestNewEnvelopeGeneratesUniqueIDs(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		env := NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, map[string]any{"topic": "x"}, "")
		require.NotEmpty(t, env.TaskID)
		_, dup := seen[env.TaskID]
		require.False(t, dup, "duplicate task id %s at %d", env.TaskID, i)
		seen[env.TaskID] = struct{}{}
	}
}

func TestNewEnvelopeKeepsGivenID(t *testing.T) {
	env := NewEnvelope(domain.AgentTeacher, domain.AgentReview, nil, "task-1")
	assert.Equal(t, "task-1", env.TaskID)
	assert.Equal(t, "teacher", env.Sender)
	assert.Equal(t, "review", env.Receiver)
	assert.NotNil(t, env.Message)
	assert.Nil(t, env.Timestamp)
}

func TestValidate(t *testing.T) {
	valid := NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, map[string]any{}, "t")
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*domain.TaskEnvelope)
	}{
		{name: "empty id", mutate: func(e *domain.TaskEnvelope) { e.TaskID = " " }},
		{name: "unknown sender", mutate: func(e *domain.TaskEnvelope) { e.Sender = "frontend" }},
		{name: "unknown receiver", mutate: func(e *domain.TaskEnvelope) { e.Receiver = "" }},
		{name: "nil message", mutate: func(e *domain.TaskEnvelope) { e.Message = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := valid
			tc.mutate(&env)
			assert.ErrorIs(t, Validate(env), ErrInvalidEnvelope)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope(strings.NewReader(`{"sender":"teacher","receiver":"quiz","message":{"topic":"Go"}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, env.TaskID)
	assert.Equal(t, "Go", env.Message["topic"])

	_, err = DecodeEnvelope(strings.NewReader(`{"sender":"teacher","receiver":"quiz"}`))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = DecodeEnvelope(strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestNewReplySwapsDirection(t *testing.T) {
	env := NewEnvelope(domain.AgentTeacher, domain.AgentQuiz, nil, "task-9")
	reply, err := NewReply(env, domain.AgentQuiz, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "task-9", reply.TaskID)
	assert.Equal(t, "quiz", reply.Sender)
	assert.Equal(t, "teacher", reply.Receiver)
	assert.JSONEq(t, `{"n":1}`, string(reply.Result))
}

func TestStringField(t *testing.T) {
	msg := map[string]any{"topic": "  Go  ", "empty": "", "num": 3, "nil": nil}

	v, ok := StringField(msg, "topic")
	assert.True(t, ok)
	assert.Equal(t, "Go", v)

	for _, key := range []string{"empty", "num", "nil", "missing"} {
		_, ok := StringField(msg, key)
		assert.False(t, ok, key)
	}
}
