package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_PipelineCounters(t *testing.T) {
	m := New("test")

	m.ObserveStage("combined_analysis", 2*time.Second, nil)
	m.ObserveStage("narrative_synthesis", time.Second, errors.New("timeout"))
	m.RetrievalFallback("empty")
	m.LearnFailed()
	m.AuditFailed("kafka")
	m.AlertScored("high")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationFailures.WithLabelValues("narrative_synthesis")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.generationFailures.WithLabelValues("combined_analysis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retrievalFallbacks.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.learnFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures.WithLabelValues("kafka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertPriorities.WithLabelValues("high")))
}

func TestMetrics_HTTPInFlight(t *testing.T) {
	m := New("test")

	m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	m.RequestFinished("POST", "/v1/{tenant}/cases/analyze", 200, 3*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/v1/{tenant}/cases/analyze", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("sar")
	m.LearnFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sar_knowledge_learn_failures_total 1"))
}
