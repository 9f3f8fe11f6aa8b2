// Package metrics provides Prometheus metrics for the mingle matchmaking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Default bucket layouts. Latencies are recorded in milliseconds.
var (
	defaultLatencyBuckets  = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000} //nolint:gochecknoglobals // bucket layout
	defaultPoolSizeBuckets = []float64{0, 1, 2, 3, 5, 10, 25, 50, 100, 250, 500, 1000}            //nolint:gochecknoglobals // bucket layout
)

// Manager manages all Prometheus metrics for the mingle service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	poolSizeBuckets  []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Matching pipeline
	surveysSubmitted      prometheus.Counter
	matchingRuns          *prometheus.CounterVec
	matchingLatency       prometheus.Histogram
	candidatePoolSize     prometheus.Histogram
	matchesReturned       prometheus.Histogram
	interestLookupLatency prometheus.Histogram
	gridWrites            prometheus.Counter

	// Store health
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	breakerState *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mingle",
		subsystem:        "matching",
		latencyBuckets:   defaultLatencyBuckets,
		poolSizeBuckets:  defaultPoolSizeBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.surveysSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("surveys_submitted_total"),
		Help: "Total number of survey submissions persisted",
	})

	m.matchingRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("runs_total"),
		Help: "Matching runs by outcome (success, no_matches, invalid_argument, unauthenticated, internal)",
	}, []string{"outcome"})

	m.matchingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("run_latency_milliseconds"),
		Help:    "End-to-end latency of a matching run in milliseconds",
		Buckets: m.latencyBuckets,
	})

	m.candidatePoolSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("candidate_pool_size"),
		Help:    "Number of other respondents considered per matching run",
		Buckets: m.poolSizeBuckets,
	})

	m.matchesReturned = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("matches_returned"),
		Help:    "Number of entries written to a match grid",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	m.interestLookupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("interest_lookup_latency_milliseconds"),
		Help:    "Latency of resolving all candidate interest profiles for one run",
		Buckets: m.latencyBuckets,
	})

	m.gridWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("grid_writes_total"),
		Help: "Total number of match grids written",
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "store", ConstLabels: labels,
		Name: m.name("errors_total"),
		Help: "Backing store errors by driver and operation",
	}, []string{"driver", "operation"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "store", ConstLabels: labels,
		Name:    m.name("operation_latency_milliseconds"),
		Help:    "Backing store operation latency by driver and operation",
		Buckets: m.latencyBuckets,
	}, []string{"driver", "operation"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "store", ConstLabels: labels,
		Name: m.name("breaker_state"),
		Help: "Circuit breaker state per backend (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name: m.name("requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name:    m.name("request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: m.name("by_component_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: m.name("by_type_total"),
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: m.name("by_endpoint_total"),
		Help: "Errors by HTTP endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("memory_bytes"),
		Help: "Allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("goroutines"),
		Help: "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name:    m.name("gc_pause_milliseconds"),
		Help:    "Average GC pause in milliseconds",
		Buckets: m.latencyBuckets,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often the system gauges of the global manager are sampled.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Global recording helpers. They are no-ops when metrics are disabled.

// RecordSurveySubmitted counts a persisted survey submission.
func RecordSurveySubmitted() {
	if globalManager.enabled {
		globalManager.surveysSubmitted.Inc()
	}
}

// RecordMatchingRun counts a finished run by outcome and records its latency.
func RecordMatchingRun(outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.matchingRuns.WithLabelValues(outcome).Inc()
	globalManager.matchingLatency.Observe(latencyMs)
}

// RecordCandidatePoolSize observes the number of candidates of one run.
func RecordCandidatePoolSize(n int) {
	if globalManager.enabled {
		globalManager.candidatePoolSize.Observe(float64(n))
	}
}

// RecordInterestLookupLatency observes the fan-out latency for candidate profiles.
func RecordInterestLookupLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.interestLookupLatency.Observe(latencyMs)
	}
}

// RecordGridWrite counts a grid write and the number of matches it holds.
func RecordGridWrite(matches int) {
	if !globalManager.enabled {
		return
	}
	globalManager.gridWrites.Inc()
	globalManager.matchesReturned.Observe(float64(matches))
}

// RecordStoreOperation observes a store call and counts it as an error when failed.
func RecordStoreOperation(driver, operation string, latencyMs float64, failed bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(driver, operation).Observe(latencyMs)
	if failed {
		globalManager.storeErrors.WithLabelValues(driver, operation).Inc()
	}
}

// UpdateBreakerState publishes the state of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	if globalManager.enabled {
		globalManager.breakerState.WithLabelValues(name).Set(float64(state))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint counts an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
