// Package a2a carries task envelopes between agents over HTTP.
package a2a

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"learning_agents/internal/domain"
)

var ErrInvalidEnvelope = errors.New("invalid task envelope")

// NewEnvelope builds a task envelope, generating a task id when taskID is empty.
func NewEnvelope(sender, receiver domain.AgentID, message map[string]any, taskID string) domain.TaskEnvelope {
	if strings.TrimSpace(taskID) == "" {
		taskID = uuid.NewString()
	}
	if message == nil {
		message = map[string]any{}
	}
	return domain.TaskEnvelope{
		TaskID:   taskID,
		Sender:   string(sender),
		Receiver: string(receiver),
		Message:  message,
	}
}

// Validate checks the envelope invariants: an id, known sender and receiver,
// and a message object.
func Validate(env domain.TaskEnvelope) error {
	if strings.TrimSpace(env.TaskID) == "" {
		return fmt.Errorf("%w: task_id is required", ErrInvalidEnvelope)
	}
	if !domain.KnownAgent(env.Sender) {
		return fmt.Errorf("%w: unknown sender %q", ErrInvalidEnvelope, env.Sender)
	}
	if !domain.KnownAgent(env.Receiver) {
		return fmt.Errorf("%w: unknown receiver %q", ErrInvalidEnvelope, env.Receiver)
	}
	if env.Message == nil {
		return fmt.Errorf("%w: message is required", ErrInvalidEnvelope)
	}
	return nil
}

// DecodeEnvelope reads an envelope from an inbound request body. A missing
// task_id is generated, matching the sender-side constructor.
func DecodeEnvelope(r io.Reader) (domain.TaskEnvelope, error) {
	var env domain.TaskEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return domain.TaskEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if strings.TrimSpace(env.TaskID) == "" {
		env.TaskID = uuid.NewString()
	}
	if err := Validate(env); err != nil {
		return domain.TaskEnvelope{}, err
	}
	return env, nil
}

// NewReply addresses a result back to the envelope's sender.
func NewReply(env domain.TaskEnvelope, from domain.AgentID, result any) (domain.TaskReply, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return domain.TaskReply{}, fmt.Errorf("marshal task result: %w", err)
	}
	return domain.TaskReply{
		TaskID:   env.TaskID,
		Sender:   string(from),
		Receiver: env.Sender,
		Result:   raw,
	}, nil
}

// StringField returns message[key] when it is a non-empty string.
func StringField(message map[string]any, key string) (string, bool) {
	v, ok := message[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
