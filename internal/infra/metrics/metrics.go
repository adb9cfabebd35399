package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports, on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	stageDuration      *prometheus.HistogramVec
	generationFailures *prometheus.CounterVec
	analyses           *prometheus.CounterVec
	retrievalFallbacks *prometheus.CounterVec
	learnFailures      prometheus.Counter
	auditFailures      *prometheus.CounterVec
	alertPriorities    *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sar"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "stage_duration_seconds",
			Help: "Generation stage latency.",
			// generation calls take seconds, not milliseconds
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"stage"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "generation_failures_total",
			Help: "Failed generation calls by stage.",
		}, []string{"stage"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "analyses_total",
			Help: "Completed analysis runs by outcome and risk level.",
		}, []string{"outcome", "risk_level"}),
		retrievalFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "knowledge", Name: "retrieval_fallbacks_total",
			Help: "Retrievals answered with the fallback text.",
		}, []string{"reason"}),
		learnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "knowledge", Name: "learn_failures_total",
			Help: "Approved narratives that could not be added to the store.",
		}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "audit", Name: "sink_failures_total",
			Help: "Audit events a sink failed to record.",
		}, []string{"sink"}),
		alertPriorities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "alerts", Name: "priority_total",
			Help: "Scored alerts by priority level.",
		}, []string{"priority"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.stageDuration, m.generationFailures, m.analyses,
		m.retrievalFallbacks, m.learnFailures, m.auditFailures, m.alertPriorities,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RequestStarted() { m.httpInFlight.Inc() }

func (m *Metrics) RequestFinished(method, route string, status int, d time.Duration) {
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.generationFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) AnalysisFinished(outcome, riskLevel string) {
	m.analyses.WithLabelValues(outcome, riskLevel).Inc()
}

func (m *Metrics) RetrievalFallback(reason string) {
	m.retrievalFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) LearnFailed() { m.learnFailures.Inc() }

func (m *Metrics) AuditFailed(sink string) { m.auditFailures.WithLabelValues(sink).Inc() }

func (m *Metrics) AlertScored(priority string) { m.alertPriorities.WithLabelValues(priority).Inc() }
