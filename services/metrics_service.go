package services

import (
	"sync/atomic"

	"bridge-keeper/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_request_total",
			Help: "Total HTTP requests handled by the keeper API",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_request_duration_seconds",
			Help:    "Duration of keeper API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	healthCheckCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_health_check_total",
			Help: "Health probes against the bridge's public endpoint",
		},
		[]string{"result"},
	)

	consecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_consecutive_failures",
			Help: "Consecutive failed health probes since the last success",
		},
	)

	publicationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_publication_total",
			Help: "Per-target tunnel URL publication outcomes",
		},
		[]string{"target", "outcome"},
	)
)

// local mirrors of the counters above, for the healthz payload
var (
	totalRequests    int64
	totalErrors      int64
	totalChecks      int64
	totalFailedCheck int64
	totalPublished   int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(healthCheckCount)
	prometheus.MustRegister(consecutiveFailures)
	prometheus.MustRegister(publicationCount)
}

func IncrementRequestCount(route string) {
	requestCount.WithLabelValues(route).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

func IncrementErrorCount(route string) {
	atomic.AddInt64(&totalErrors, 1)
}

/**
 * Record the outcome of one health probe
 * @param {bool} ok - Probe result
 * @param {int} failures - Current consecutive failure count
 */
func RecordHealthCheck(ok bool, failures int) {
	result := "success"
	if !ok {
		result = "failure"
		atomic.AddInt64(&totalFailedCheck, 1)
	}
	healthCheckCount.WithLabelValues(result).Inc()
	consecutiveFailures.Set(float64(failures))
	atomic.AddInt64(&totalChecks, 1)
}

// RecordPublication counts one per-target publication outcome.
func RecordPublication(target string, outcome models.TargetOutcome) {
	publicationCount.WithLabelValues(target, string(outcome)).Inc()
	if outcome == models.OutcomePublished {
		atomic.AddInt64(&totalPublished, 1)
	}
}

func GetTotalRequestCount() int64 { return atomic.LoadInt64(&totalRequests) }

func GetTotalErrorCount() int64 { return atomic.LoadInt64(&totalErrors) }

func GetHealthCheckCount() int64 { return atomic.LoadInt64(&totalChecks) }

func GetFailedCheckCount() int64 { return atomic.LoadInt64(&totalFailedCheck) }

func GetPublishedCount() int64 { return atomic.LoadInt64(&totalPublished) }
