package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "ops listener response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "ops requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "ops requests by code and method"},
		[]string{"code", "method"},
	)

	recordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sink_records_processed_total", Help: "records by terminal outcome"},
		[]string{"outcome"},
	)

	httpAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sink_http_attempts_total", Help: "forward attempts by status class"},
		[]string{"class"},
	)

	attemptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sink_http_attempt_seconds",
			Help:    "forward attempt round-trip time.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sink_retries_total", Help: "backoff sleeps taken"},
	)

	publishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sink_publish_failures_total", Help: "producer failures by channel"},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		recordsProcessed,
		httpAttempts,
		attemptDuration,
		retriesTotal,
		publishFailures,
	)
}

// RecordProcessed counts a record's terminal outcome: success, error,
// ignored, or failed.
func RecordProcessed(outcome string) { recordsProcessed.WithLabelValues(outcome).Inc() }

// ObserveAttempt counts one forward attempt by status class and records
// its round-trip time.
func ObserveAttempt(status int, seconds float64) {
	httpAttempts.WithLabelValues(statusClass(status)).Inc()
	attemptDuration.Observe(seconds)
}

// ObserveAttemptError counts a forward attempt that died in transport.
func ObserveAttemptError() { httpAttempts.WithLabelValues("exception").Inc() }

// RetrySlept counts one backoff sleep.
func RetrySlept() { retriesTotal.Inc() }

// PublishFailed counts a producer failure on "response" or "error".
func PublishFailed(channel string) { publishFailures.WithLabelValues(channel).Inc() }

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
