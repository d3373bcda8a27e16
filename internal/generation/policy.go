package generation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"learning_agents/internal/domain"
	"learning_agents/internal/metrics"
)

// Policy wraps a Generator so callers always get a usable value.
// A nil Generator behaves as if no backend were installed.
type Policy struct {
	Generator Generator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Degraded describes why the fallback value was used.
type Degraded struct {
	Source domain.Source
	// Cause is empty when the backend answered with unusable output.
	Cause  Cause
	Reason string
	Err    error
}

// Message is a one-line description suitable for the response error field.
func (d Degraded) Message() string {
	if d.Err != nil {
		return d.Err.Error()
	}
	return d.Reason
}

type Result[T any] struct {
	Value    T
	Source   domain.Source
	Model    string
	Usage    *domain.Usage
	Degraded *Degraded
}

// Resolve runs one generation attempt and parses the text. Any failure is
// folded into fallback, so Resolve never returns an error.
func Resolve[T any](ctx context.Context, p Policy, req Request, parse func(text string) (T, error), fallback func(Degraded) T) Result[T] {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("agent", req.Agent))

	var outcome Outcome
	if p.Generator == nil {
		outcome = Unavailable{Cause: CauseNoBackend, Reason: "generation backend is not installed"}
	} else {
		outcome = p.Generator.Generate(ctx, req)
		if outcome == nil {
			outcome = Unavailable{Cause: CauseNoBackend, Reason: "generation backend returned nothing"}
		}
	}

	if s, ok := outcome.(Success); ok {
		value, err := parse(s.Completion.Text)
		if err == nil {
			p.Metrics.ObserveGeneration(req.Agent, OutcomeLabel(outcome))
			return Result[T]{
				Value:  value,
				Source: domain.SourceOpenAI,
				Model:  s.Completion.Model,
				Usage:  s.Completion.Usage,
			}
		}
		outcome = Invalid{Reason: err.Error()}
	}
	p.Metrics.ObserveGeneration(req.Agent, OutcomeLabel(outcome))

	var d Degraded
	switch o := outcome.(type) {
	case Unavailable:
		d = Degraded{Cause: o.Cause, Reason: o.Reason, Err: o.Err}
		if o.Cause == CauseCallFailed {
			d.Source = domain.SourceError
			logger.Error("generation call failed", zap.String("reason", o.Reason), zap.Error(o.Err))
		} else {
			d.Source = domain.SourceFallback
			logger.Warn("generation unavailable, using fallback", zap.String("cause", string(o.Cause)), zap.String("reason", o.Reason))
		}
	case Invalid:
		d = Degraded{Source: domain.SourceError, Reason: o.Reason, Err: errors.New(o.Reason)}
		logger.Error("generation output invalid", zap.String("reason", o.Reason))
	}
	return Result[T]{Value: fallback(d), Source: d.Source, Degraded: &d}
}
