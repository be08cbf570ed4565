// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveUpstream("pubmed", "esearch", OutcomeOK, 10*time.Millisecond)
	m.ObserveUpstream("pubmed", "esearch", OutcomeOK, 10*time.Millisecond)
	m.ObserveUpstream("pubmed", "efetch", OutcomeFailed, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("pubmed", "esearch", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("pubmed", "efetch", OutcomeFailed)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("pubmed", "esearch", OutcomeOK, 0)
		m.ObserveLLM("extract", OutcomeOK)
		m.ObserveRun(OutcomeOK, time.Second)
		m.IncSpeciesFailure()
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.ObserveRun(OutcomeOK, 2*time.Second)
	m.ObserveLLM("summary", OutcomeParseFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "genegap_analysis_runs_total")
	assert.Contains(t, string(body), `genegap_llm_calls_total{outcome="parse_failed",task="summary"} 1`)
}
