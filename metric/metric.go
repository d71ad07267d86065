// Package metric exposes prometheus instrumentation for model
// invocations. The engine records attempts, retries, latency, and token
// consumption; a long-running adapter can serve the registry over HTTP.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the invocation metrics.
type Set struct {
	registry *prometheus.Registry

	// Invocations counts completed model invocations by outcome
	// (ok, error).
	Invocations *prometheus.CounterVec

	// Retries counts retry attempts beyond the first try.
	Retries prometheus.Counter

	// Duration observes invocation wall time per model.
	Duration *prometheus.HistogramVec

	// Tokens counts token usage per model and kind (prompt, completion).
	Tokens *prometheus.CounterVec
}

// NewSet creates and registers the metric set on a fresh registry.
func NewSet() *Set {
	reg := prometheus.NewRegistry()

	s := &Set{
		registry: reg,
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeep",
			Name:      "invocations_total",
			Help:      "Model invocations by persona, model, and outcome.",
		}, []string{"persona", "model", "outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gatekeep",
			Name:      "invocation_retries_total",
			Help:      "Retry attempts beyond the first try.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gatekeep",
			Name:      "invocation_duration_seconds",
			Help:      "Model invocation wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeep",
			Name:      "tokens_total",
			Help:      "Token usage by model and kind.",
		}, []string{"model", "kind"}),
	}

	reg.MustRegister(s.Invocations, s.Retries, s.Duration, s.Tokens)
	return s
}

// Handler serves the metric set in prometheus exposition format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveInvocation records one completed invocation.
func (s *Set) ObserveInvocation(personaName, modelID, outcome string, seconds float64, retries, promptTokens, completionTokens int) {
	if s == nil {
		return
	}
	s.Invocations.WithLabelValues(personaName, modelID, outcome).Inc()
	s.Duration.WithLabelValues(modelID).Observe(seconds)
	if retries > 0 {
		s.Retries.Add(float64(retries))
	}
	if promptTokens > 0 {
		s.Tokens.WithLabelValues(modelID, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		s.Tokens.WithLabelValues(modelID, "completion").Add(float64(completionTokens))
	}
}
