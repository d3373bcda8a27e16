package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the agents service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RelayRequests       *prometheus.CounterVec
	RelayDuration       *prometheus.HistogramVec
	GenerationOutcomes  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RelayRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learning_relay_requests_total",
				Help: "Inter-agent relay calls by receiver and outcome",
			},
			[]string{"receiver", "outcome"},
		),
		RelayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learning_relay_duration_seconds",
				Help:    "Inter-agent relay round-trip duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"receiver"},
		),
		GenerationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learning_generation_outcomes_total",
				Help: "External generation outcomes by agent",
			},
			[]string{"agent", "outcome"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learning_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learning_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) ObserveRelay(receiver, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RelayRequests.WithLabelValues(receiver, outcome).Inc()
	m.RelayDuration.WithLabelValues(receiver).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveGeneration(agent, outcome string) {
	if m == nil {
		return
	}
	m.GenerationOutcomes.WithLabelValues(agent, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
