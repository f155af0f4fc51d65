// Package metrics provides Prometheus metrics for the killwatch ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll cycle outcomes used as the "outcome" label.
const (
	OutcomeEmpty       = "empty"
	OutcomeAccepted    = "accepted"
	OutcomeStale       = "stale"
	OutcomeDuplicate   = "duplicate"
	OutcomeNoKillmail  = "no_killmail"
	OutcomeParseError  = "parse_error"
	OutcomeFetchError  = "fetch_error"
	OutcomeRateLimited = "rate_limited"
)

// Manager manages all Prometheus metrics for the killwatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Poller
	pollCycles   *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	backoff      prometheus.Histogram
	pollerState  prometheus.Gauge

	// Retention store
	killmailsInserted prometheus.Counter
	killmailsTrimmed  prometheus.Counter
	killmailsRetained prometheus.Gauge
	focused           prometheus.Gauge

	// Connection
	pings        prometheus.Counter
	lastPingUnix prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errors              *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "killwatch",
		subsystem:        "ingest",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.pollCycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles by outcome",
	}, []string{"outcome"})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Upstream fetch latency in milliseconds",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 14),
	})

	m.backoff = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backoff_seconds",
		Help:      "Backoff delays applied after failed or throttled fetches",
		Buckets:   m.histogramBuckets,
	})

	m.pollerState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poller_state",
		Help:      "Current poller state (0 idle, 1 fetching, 2 backoff, 3 stopped)",
	})

	m.killmailsInserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "killmails_inserted_total",
		Help:      "Killmails inserted into the retention store",
	})

	m.killmailsTrimmed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "killmails_trimmed_total",
		Help:      "Killmails removed from the retention store by trim",
	})

	m.killmailsRetained = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "killmails_retained",
		Help:      "Killmails currently held by the retention store",
	})

	m.focused = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "focused",
		Help:      "1 when a killmail is focused, 0 otherwise",
	})

	m.pings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pings_total",
		Help:      "Liveness pings emitted by the poller",
	})

	m.lastPingUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_ping_unix",
		Help:      "Unix timestamp of the last liveness ping",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordPollCycle increments the poll cycle counter for outcome.
func RecordPollCycle(outcome string) {
	globalManager.pollCycles.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency records an upstream fetch latency.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordBackoff records a backoff delay in seconds.
func RecordBackoff(seconds float64) {
	globalManager.backoff.Observe(seconds)
}

// UpdatePollerState sets the poller state gauge.
func UpdatePollerState(state int) {
	globalManager.pollerState.Set(float64(state))
}

// RecordKillmailInserted increments the insert counter.
func RecordKillmailInserted() {
	globalManager.killmailsInserted.Inc()
}

// RecordKillmailsTrimmed adds n to the trimmed counter.
func RecordKillmailsTrimmed(n int) {
	if n > 0 {
		globalManager.killmailsTrimmed.Add(float64(n))
	}
}

// UpdateKillmailsRetained sets the number of retained killmails.
func UpdateKillmailsRetained(count int) {
	globalManager.killmailsRetained.Set(float64(count))
}

// UpdateFocused sets the focus gauge.
func UpdateFocused(focused bool) {
	if focused {
		globalManager.focused.Set(1)
		return
	}
	globalManager.focused.Set(0)
}

// RecordPing increments the ping counter and stamps the last ping time.
func RecordPing(unix float64) {
	globalManager.pings.Inc()
	globalManager.lastPingUnix.Set(unix)
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errors.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
