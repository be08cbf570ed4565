// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors shared by the upstream
// clients and the pipeline. All methods are safe on a nil *Metrics so
// components can run without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for upstream calls.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeFailed      = "failed"
	OutcomeParseFailed = "parse_failed"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	LLMCalls         *prometheus.CounterVec
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	SpeciesFailures  prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genegap_upstream_requests_total",
			Help: "Outbound requests partitioned by service, operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genegap_upstream_request_seconds",
			Help:    "Outbound request latency partitioned by service.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"service"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genegap_llm_calls_total",
			Help: "Language model calls partitioned by task and outcome.",
		}, []string{"task", "outcome"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genegap_analysis_runs_total",
			Help: "Gap analysis runs partitioned by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genegap_analysis_run_seconds",
			Help:    "Wall time of completed gap analysis runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SpeciesFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genegap_species_lookup_failures_total",
			Help: "Target species whose cross-reference lookups all failed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.UpstreamRequests, m.UpstreamLatency, m.LLMCalls,
		m.Runs, m.RunDuration, m.SpeciesFailures,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one outbound request.
func (m *Metrics) ObserveUpstream(service, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(service, operation, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}

// ObserveLLM records one language model call.
func (m *Metrics) ObserveLLM(task, outcome string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(task, outcome).Inc()
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.RunDuration.Observe(elapsed.Seconds())
	}
}

// IncSpeciesFailure records a target species with no successful lookup.
func (m *Metrics) IncSpeciesFailure() {
	if m == nil {
		return
	}
	m.SpeciesFailures.Inc()
}
