package policy

import (
	"errors"
	"fmt"

	"learning_agents/internal/domain"
)

var ErrChannelDenied = errors.New("agent channel is not allowed")

type Channel struct {
	From domain.AgentID
	To   domain.AgentID
}

// DefaultChannels lets the teacher dispatch to the quiz and review agents.
func DefaultChannels() []Channel {
	return []Channel{
		{From: domain.AgentTeacher, To: domain.AgentQuiz},
		{From: domain.AgentTeacher, To: domain.AgentReview},
	}
}

type Engine struct {
	channels map[Channel]struct{}
}

func New(channels []Channel) *Engine {
	set := make(map[Channel]struct{}, len(channels))
	for _, ch := range channels {
		set[ch] = struct{}{}
	}
	return &Engine{channels: set}
}

// CanMessage reports whether sender may deliver a task to receiver, with a
// reason suitable for logging.
func (e *Engine) CanMessage(sender, receiver string) (bool, string) {
	if !domain.KnownAgent(sender) {
		return false, fmt.Sprintf("unknown sender %q", sender)
	}
	if !domain.KnownAgent(receiver) {
		return false, fmt.Sprintf("unknown receiver %q", receiver)
	}
	if _, ok := e.channels[Channel{From: domain.AgentID(sender), To: domain.AgentID(receiver)}]; !ok {
		return false, fmt.Sprintf("no channel %s -> %s", sender, receiver)
	}
	return true, "allowed"
}

// Check is CanMessage as an error wrapping ErrChannelDenied.
func (e *Engine) Check(sender, receiver string) error {
	if ok, reason := e.CanMessage(sender, receiver); !ok {
		return fmt.Errorf("%w: %s", ErrChannelDenied, reason)
	}
	return nil
}
