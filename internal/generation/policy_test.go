package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learning_agents/internal/domain"
	"learning_agents/internal/metrics"
)

type stubGenerator struct {
	outcome Outcome
	calls   int
}

func (s *stubGenerator) Generate(context.Context, Request) Outcome {
	s.calls++
	return s.outcome
}

func parseUpper(text string) (string, error) {
	if text == "bad" {
		return "", errors.New("unparseable")
	}
	return strings.ToUpper(text), nil
}

func fallbackText(d Degraded) string {
	return "fallback:" + string(d.Source)
}

func TestResolveSourceMapping(t *testing.T) {
	tests := []struct {
		name       string
		generator  Generator
		wantValue  string
		wantSource domain.Source
		wantLabel  string
	}{
		{
			name:       "success",
			generator:  &stubGenerator{outcome: Success{Completion: Completion{Text: "ok", Model: "m"}}},
			wantValue:  "OK",
			wantSource: domain.SourceOpenAI,
			wantLabel:  "success",
		},
		{
			name:       "no credential",
			generator:  &stubGenerator{outcome: Unavailable{Cause: CauseNoCredential}},
			wantValue:  "fallback:fallback",
			wantSource: domain.SourceFallback,
			wantLabel:  "no_credential",
		},
		{
			name:       "no backend",
			generator:  nil,
			wantValue:  "fallback:fallback",
			wantSource: domain.SourceFallback,
			wantLabel:  "no_backend",
		},
		{
			name:       "call failed",
			generator:  &stubGenerator{outcome: Unavailable{Cause: CauseCallFailed, Err: errors.New("boom")}},
			wantValue:  "fallback:error",
			wantSource: domain.SourceError,
			wantLabel:  "call_failed",
		},
		{
			name:       "invalid",
			generator:  &stubGenerator{outcome: Invalid{Reason: "empty"}},
			wantValue:  "fallback:error",
			wantSource: domain.SourceError,
			wantLabel:  "invalid",
		},
		{
			name:       "parse failure",
			generator:  &stubGenerator{outcome: Success{Completion: Completion{Text: "bad"}}},
			wantValue:  "fallback:error",
			wantSource: domain.SourceError,
			wantLabel:  "invalid",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			p := Policy{Generator: tc.generator, Logger: zaptest.NewLogger(t), Metrics: m}
			res := Resolve(context.Background(), p, Request{Agent: "teacher"}, parseUpper, fallbackText)

			assert.Equal(t, tc.wantValue, res.Value)
			assert.Equal(t, tc.wantSource, res.Source)
			if tc.wantSource == domain.SourceOpenAI {
				assert.Nil(t, res.Degraded)
				assert.Equal(t, "m", res.Model)
			} else {
				require.NotNil(t, res.Degraded)
				assert.Equal(t, tc.wantSource, res.Degraded.Source)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationOutcomes.WithLabelValues("teacher", tc.wantLabel)))
		})
	}
}

func TestResolveCallsGeneratorOnce(t *testing.T) {
	gen := &stubGenerator{outcome: Unavailable{Cause: CauseCallFailed, Err: errors.New("boom")}}
	res := Resolve(context.Background(), Policy{Generator: gen}, Request{}, parseUpper, fallbackText)
	assert.Equal(t, 1, gen.calls)
	require.NotNil(t, res.Degraded)
	assert.Equal(t, "boom", res.Degraded.Message())
}

func TestDegradedMessagePrefersError(t *testing.T) {
	if got := (Degraded{Reason: "r"}).Message(); got != "r" {
		t.Fatalf("Message()=%q want=%q", got, "r")
	}
	if got := (Degraded{Reason: "r", Err: errors.New("e")}).Message(); got != "e" {
		t.Fatalf("Message()=%q want=%q", got, "e")
	}
}
