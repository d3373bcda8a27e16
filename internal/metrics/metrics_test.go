package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	m := New()
	m.ObserveRelay("quiz", "ok", 20*time.Millisecond)
	m.ObserveRelay("quiz", "timeout", time.Second)
	m.ObserveRelay("quiz", "timeout", time.Second)
	m.ObserveGeneration("teacher", "fallback")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("quiz", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("quiz", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationOutcomes.WithLabelValues("teacher", "fallback")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRelay("quiz", "ok", time.Millisecond)
	m.ObserveGeneration("quiz", "success")
	m.ObserveHTTP("GET", "/", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "/teacher/ask", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `learning_http_requests_total{code="200",method="POST",route="/teacher/ask"} 1`)
}
