// Package agent implements the quiz and review agents and the teacher
// dispatcher that routes questions between them.
package agent

import (
	"errors"
	"fmt"

	"learning_agents/internal/a2a"
	"learning_agents/internal/domain"
)

var ErrInvalidTask = errors.New("invalid task")

// ChannelPolicy decides whether one agent may send a task to another.
type ChannelPolicy interface {
	Check(sender, receiver string) error
}

// acceptEnvelope rejects envelopes that are malformed, addressed to a
// different agent, or sent over a channel the policy denies.
func acceptEnvelope(env domain.TaskEnvelope, self domain.AgentID, channels ChannelPolicy) error {
	if err := a2a.Validate(env); err != nil {
		return err
	}
	if env.Receiver != string(self) {
		return fmt.Errorf("%w: envelope addressed to %q, not %q", a2a.ErrInvalidEnvelope, env.Receiver, self)
	}
	if channels != nil {
		if err := channels.Check(env.Sender, env.Receiver); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(message map[string]any, key string) *string {
	if v, ok := a2a.StringField(message, key); ok {
		return &v
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
