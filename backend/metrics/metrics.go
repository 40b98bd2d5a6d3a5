// Package metrics holds the Prometheus collectors of the backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanskriti-setu/setu/backend/recommend"
)

// Metrics owns a registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RecommendationRequests *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram
	CandidatePoolSize      prometheus.Gauge
	ChatMessages           *prometheus.CounterVec
	WSConnections          prometheus.Gauge
	BreakerState           *prometheus.GaugeVec
}

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecommendationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setu_recommendation_requests_total",
			Help: "Recommendation requests by outcome",
		}, []string{"outcome"}),
		RecommendationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "setu_recommendation_duration_seconds",
			Help:    "Time to load the pool and rank it",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		CandidatePoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "setu_candidate_pool_size",
			Help: "Profiles scored by the last successful recommendation",
		}),
		ChatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setu_chat_messages_total",
			Help: "Chat messages by result",
		}, []string{"result"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "setu_ws_connections",
			Help: "Open chat websockets",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "setu_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		}, []string{"name"}),
	}
	m.registry.MustRegister(
		m.RecommendationRequests,
		m.RecommendationDuration,
		m.CandidatePoolSize,
		m.ChatMessages,
		m.WSConnections,
		m.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRecommendation records one recommendation call.
func (m *Metrics) ObserveRecommendation(outcome string, poolSize int, elapsed time.Duration) {
	m.RecommendationRequests.WithLabelValues(outcome).Inc()
	m.RecommendationDuration.Observe(elapsed.Seconds())
	if outcome == recommend.OutcomeOK {
		m.CandidatePoolSize.Set(float64(poolSize))
	}
}

// ChatMessage counts a chat message as "sent" or "rejected".
func (m *Metrics) ChatMessage(result string) {
	m.ChatMessages.WithLabelValues(result).Inc()
}

// BreakerChanged records a breaker transition.
func (m *Metrics) BreakerChanged(name, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.BreakerState.WithLabelValues(name).Set(v)
}
