// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "anxietyally"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by outcome and the store that produced them.",
		},
		[]string{"outcome", "source"},
	)

	InferenceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_calls_total",
			Help:      "Remote inference calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	EnrichmentJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_jobs_total",
			Help:      "Journal enrichment jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordRateLimit(allowed bool, source string) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	RateLimitDecisions.WithLabelValues(outcome, source).Inc()
}

func RecordInference(operation, outcome string) {
	InferenceCalls.WithLabelValues(operation, outcome).Inc()
}

func RecordEnrichment(outcome string) {
	EnrichmentJobs.WithLabelValues(outcome).Inc()
}
