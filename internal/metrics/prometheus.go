// Package metrics registers and records Prometheus metrics for the
// randomness scorer: statistical test execution, suite orchestration,
// and the HTTP scoring endpoint.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TestsExecuted        *prometheus.CounterVec
	TestFailures         *prometheus.CounterVec
	TestDuration         *prometheus.HistogramVec
	TestPValue           *prometheus.HistogramVec
	SuiteRuns            prometheus.Counter
	SuiteGateRejections  prometheus.Counter
	SuiteDuration        prometheus.Histogram
	ScoreHTTPRequests    *prometheus.CounterVec
	ScoreHTTP503Total    prometheus.Counter
	ScoreHTTPRateLimited prometheus.Counter
	ScoreHTTPOversized   prometheus.Counter
	ScoreHTTPLatency     prometheus.Histogram

	metricsMu         sync.RWMutex
	currentRegisterer prometheus.Registerer = prometheus.DefaultRegisterer
)

func init() {
	resetMetrics(prometheus.DefaultRegisterer)
}

// SetRegisterer sets a new registerer and reinitializes all metrics.
// It returns the previous registerer so it can be restored later.
// This function is thread-safe and designed for use in tests to provide
// isolated metric registries per test.
func SetRegisterer(registerer prometheus.Registerer) prometheus.Registerer {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	previous := currentRegisterer

	if currentRegisterer != nil {
		unregisterAll(currentRegisterer)
	}

	currentRegisterer = registerer
	initializeMetrics(registerer)

	return previous
}

// ResetForTesting reconfigures all metric collectors against the provided registerer.
// It unregisters the existing metrics from the previous registerer to prevent
// duplicate registrations when invoked repeatedly.
//
// Deprecated: Use SetRegisterer instead for better test isolation.
func ResetForTesting(registerer prometheus.Registerer) {
	resetMetrics(registerer)
}

func resetMetrics(registerer prometheus.Registerer) {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if currentRegisterer != nil {
		unregisterAll(currentRegisterer)
	}

	currentRegisterer = registerer
	initializeMetrics(registerer)
}

// initializeMetrics creates all metrics using the provided registerer.
// This function must be called while holding metricsMu.
func initializeMetrics(registerer prometheus.Registerer) {
	factory := promauto.With(registerer)

	TestsExecuted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sts_tests_executed_total",
			Help: "Total number of statistical test executions by outcome",
		},
		[]string{"test", "outcome"},
	)

	TestFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sts_test_failures_total",
			Help: "Total number of statistical test executions that returned an error",
		},
		[]string{"test", "reason"},
	)

	TestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sts_test_duration_seconds",
			Help:    "Execution time per statistical test",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"test"},
	)

	TestPValue = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sts_test_p_value",
			Help:    "Distribution of p-values per statistical test",
			Buckets: prometheus.LinearBuckets(0, 0.05, 21),
		},
		[]string{"test"},
	)

	SuiteRuns = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "suite_runs_total",
			Help: "Total number of suite evaluations started",
		},
	)

	SuiteGateRejections = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "suite_gate_rejections_total",
			Help: "Total number of suite runs aborted by the frequency gate",
		},
	)

	SuiteDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suite_duration_seconds",
			Help:    "Wall-clock time for a full suite evaluation",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
	)

	ScoreHTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_http_requests_total",
			Help: "Total number of scoring endpoint requests by status code",
		},
		[]string{"code"},
	)

	ScoreHTTP503Total = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "score_http_503_total",
			Help: "Total number of scoring endpoint 503 responses",
		},
	)

	ScoreHTTPRateLimited = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "score_http_rate_limited_total",
			Help: "Total number of scoring endpoint rate limited responses",
		},
	)

	ScoreHTTPOversized = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "score_http_oversized_total",
			Help: "Total number of scoring requests rejected for exceeding the sequence size limit",
		},
	)

	ScoreHTTPLatency = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_http_latency_seconds",
			Help:    "Latency distribution for the scoring HTTP handler",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)
}

func unregisterAll(registerer prometheus.Registerer) {
	if TestsExecuted != nil {
		registerer.Unregister(TestsExecuted)
	}
	if TestFailures != nil {
		registerer.Unregister(TestFailures)
	}
	if TestDuration != nil {
		registerer.Unregister(TestDuration)
	}
	if TestPValue != nil {
		registerer.Unregister(TestPValue)
	}
	if SuiteRuns != nil {
		registerer.Unregister(SuiteRuns)
	}
	if SuiteGateRejections != nil {
		registerer.Unregister(SuiteGateRejections)
	}
	if SuiteDuration != nil {
		registerer.Unregister(SuiteDuration)
	}
	if ScoreHTTPRequests != nil {
		registerer.Unregister(ScoreHTTPRequests)
	}
	if ScoreHTTP503Total != nil {
		registerer.Unregister(ScoreHTTP503Total)
	}
	if ScoreHTTPRateLimited != nil {
		registerer.Unregister(ScoreHTTPRateLimited)
	}
	if ScoreHTTPOversized != nil {
		registerer.Unregister(ScoreHTTPOversized)
	}
	if ScoreHTTPLatency != nil {
		registerer.Unregister(ScoreHTTPLatency)
	}
}

// RecordTestResult records a completed statistical test with its p-value,
// pass/fail outcome against the significance level, and execution time.
func RecordTestResult(test string, pValue float64, passed bool, duration time.Duration) {
	outcome := "pass"
	if !passed {
		outcome = "fail"
	}
	TestsExecuted.WithLabelValues(test, outcome).Inc()

	if pValue < 0 {
		pValue = 0
	} else if pValue > 1 {
		pValue = 1
	}
	TestPValue.WithLabelValues(test).Observe(pValue)

	if duration < 0 {
		duration = 0
	}
	TestDuration.WithLabelValues(test).Observe(duration.Seconds())
}

// RecordTestError records a statistical test that returned an error instead
// of a p-value.
func RecordTestError(test string, reason string) {
	TestsExecuted.WithLabelValues(test, "error").Inc()
	TestFailures.WithLabelValues(test, reason).Inc()
}

// RecordSuiteRun tracks a suite evaluation and its wall-clock duration.
func RecordSuiteRun(duration time.Duration) {
	SuiteRuns.Inc()
	if duration < 0 {
		duration = 0
	}
	SuiteDuration.Observe(duration.Seconds())
}

// RecordSuiteGateRejection increments the counter for suite runs aborted by
// the frequency gate.
func RecordSuiteGateRejection() {
	SuiteGateRejections.Inc()
}

// RecordScoreHTTPRequest tracks latency and status codes for the scoring endpoint.
func RecordScoreHTTPRequest(code int, duration time.Duration) {
	label := strconv.Itoa(code)
	if code <= 0 {
		label = "0"
	}
	if duration < 0 {
		duration = 0
	}
	ScoreHTTPRequests.WithLabelValues(label).Inc()
	ScoreHTTPLatency.Observe(duration.Seconds())
}

// RecordScoreHTTP503 increments the total 503 counter for the scoring endpoint.
func RecordScoreHTTP503() {
	ScoreHTTP503Total.Inc()
}

// RecordScoreHTTPRateLimited tracks rate-limited responses for the scoring endpoint.
func RecordScoreHTTPRateLimited() {
	ScoreHTTPRateLimited.Inc()
}

// RecordScoreHTTPOversized tracks scoring requests rejected for exceeding the
// configured sequence size limit.
func RecordScoreHTTPOversized() {
	ScoreHTTPOversized.Inc()
}
