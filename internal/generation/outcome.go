// Package generation calls the external text-generation API and turns every
// failure into a deterministic fallback.
package generation

import (
	"context"

	"learning_agents/internal/domain"
)

type Request struct {
	Agent  string
	System string
	User   string
	// JSON asks the backend for a strict JSON object response.
	JSON bool
}

type Completion struct {
	Text  string
	Model string
	Usage *domain.Usage
}

// Generator performs a single generation attempt.
type Generator interface {
	Generate(ctx context.Context, req Request) Outcome
}

// Outcome is one of Success, Unavailable or Invalid.
type Outcome interface {
	outcome() string
}

type Success struct {
	Completion Completion
}

type Cause string

const (
	CauseNoCredential Cause = "no_credential"
	CauseNoBackend    Cause = "no_backend"
	CauseCallFailed   Cause = "call_failed"
)

// Unavailable means no usable call could be made, or the call failed.
type Unavailable struct {
	Cause  Cause
	Reason string
	Err    error
}

// Invalid means the backend answered but the text was unusable.
type Invalid struct {
	Reason string
}

func (Success) outcome() string { return "success" }
func (u Unavailable) outcome() string { return string(u.Cause) }
func (Invalid) outcome() string { return "invalid" }

// OutcomeLabel names an outcome for logs and metrics.
func OutcomeLabel(o Outcome) string {
	if o == nil {
		return string(CauseNoBackend)
	}
	return o.outcome()
}
