// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// shared by the pipeline, retrieval and indexing code.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

const namespace = "riskpilot"

// tracer is the package-level tracer for all riskpilot spans.
var tracer = otel.Tracer("riskpilot")

var (
	// requestsTotal counts processed requests.
	// Labels: risk_level (low, medium, high, critical), outcome (answered, blocked, withheld, timeout)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "requests_total",
		Help:      "Total requests processed by the guarded pipeline",
	}, []string{"risk_level", "outcome"})

	// requestDuration measures end-to-end request latency.
	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "request_duration_seconds",
		Help:      "End-to-end pipeline latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// stageDuration measures per-stage latency.
	// Labels: stage, status (success, degraded, skipped, failure)
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"stage", "status"})

	// violationsTotal counts guardrail findings.
	// Labels: kind, severity
	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "guardrails",
		Name:      "violations_total",
		Help:      "Total guardrail violations by kind and severity",
	}, []string{"kind", "severity"})

	// auditFailures counts records the audit sink rejected.
	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "failures_total",
		Help:      "Total audit records that could not be stored",
	})

	// searchDuration measures vector search latency.
	// Labels: filtered (true, false)
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "search_duration_seconds",
		Help:      "Exact vector search latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"filtered"})

	// indexVectors reports the number of vectors in the published index.
	indexVectors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "vectors",
		Help:      "Vectors in the published index",
	})

	// rebuildsTotal counts index rebuilds.
	// Labels: source (corpus, processed), status (success, error)
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "rebuilds_total",
		Help:      "Total index rebuilds by source and status",
	}, []string{"source", "status"})

	// rateLimited counts requests refused by the MCP rate limiter.
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mcp",
		Name:      "rate_limited_total",
		Help:      "Total ask calls refused by the rate limiter",
	})
)

// RecordRequest records a completed request.
func RecordRequest(riskLevel, outcome string, d time.Duration) {
	requestsTotal.WithLabelValues(riskLevel, outcome).Inc()
	requestDuration.Observe(d.Seconds())
}

// RecordStage records one stage execution.
func RecordStage(stage, status string, d time.Duration) {
	stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// RecordViolation records one guardrail finding.
func RecordViolation(kind, severity string) {
	violationsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordAuditFailure records a rejected audit record.
func RecordAuditFailure() {
	auditFailures.Inc()
}

// RecordSearch records one vector search.
func RecordSearch(filtered bool, d time.Duration) {
	label := "false"
	if filtered {
		label = "true"
	}
	searchDuration.WithLabelValues(label).Observe(d.Seconds())
}

// SetIndexVectors reports the size of the published index.
func SetIndexVectors(n int) {
	indexVectors.Set(float64(n))
}

// RecordRebuild records a rebuild outcome.
func RecordRebuild(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	rebuildsTotal.WithLabelValues(source, status).Inc()
}

// RecordRateLimited records a refused call.
func RecordRateLimited() {
	rateLimited.Inc()
}

// Handler serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
