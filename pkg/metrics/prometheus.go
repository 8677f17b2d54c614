// Package metrics provides Prometheus metrics for the leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Vote path
	votesAccepted    prometheus.Counter
	votesRejected    prometheus.Counter
	votesRateLimited prometheus.Counter

	// Leaderboard computation
	leaderboardComputeDuration prometheus.Histogram
	leaderboardEntries         prometheus.Gauge
	leaderboardErrors          prometheus.Counter

	// Cache behavior
	cacheHits               prometheus.Counter
	cacheMisses             prometheus.Counter
	cacheErrors             prometheus.Counter
	cacheInvalidations      prometheus.Counter
	cacheInvalidationErrors prometheus.Counter

	// Storage
	storeErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "venturerank",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.votesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_accepted_total",
		Help:      "Total number of votes written",
	})

	m.votesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_rejected_total",
		Help:      "Total number of votes rejected by validation",
	})

	m.votesRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_rate_limited_total",
		Help:      "Total number of votes blocked by the per-user rate limit",
	})

	m.leaderboardComputeDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compute_duration_milliseconds",
		Help:      "Histogram of full leaderboard computation time in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries",
		Help:      "Number of products in the most recently computed leaderboard",
	})

	m.leaderboardErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Total number of failed leaderboard computations",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of leaderboard cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of leaderboard cache misses",
	})

	m.cacheErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_errors_total",
		Help:      "Total number of cache errors treated as misses (fail open)",
	})

	m.cacheInvalidations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidations_total",
		Help:      "Total number of cache invalidation sweeps after votes",
	})

	m.cacheInvalidationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidation_errors_total",
		Help:      "Total number of swallowed cache invalidation failures",
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of database errors",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordVoteAccepted increments the accepted-vote counter.
func RecordVoteAccepted() {
	globalManager.votesAccepted.Inc()
}

// RecordVoteRejected increments the validation-rejection counter.
func RecordVoteRejected() {
	globalManager.votesRejected.Inc()
}

// RecordVoteRateLimited increments the rate-limited counter.
func RecordVoteRateLimited() {
	globalManager.votesRateLimited.Inc()
}

// RecordComputeDuration records one full leaderboard computation.
func RecordComputeDuration(latencyMs float64) {
	globalManager.leaderboardComputeDuration.Observe(latencyMs)
}

// UpdateLeaderboardEntries sets the size of the last computed leaderboard.
func UpdateLeaderboardEntries(count int) {
	globalManager.leaderboardEntries.Set(float64(count))
}

// RecordLeaderboardError increments the computation-error counter.
func RecordLeaderboardError() {
	globalManager.leaderboardErrors.Inc()
}

// RecordCacheHit increments the cache-hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache-miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheError increments the fail-open cache-error counter.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// RecordCacheInvalidation increments the invalidation-sweep counter.
func RecordCacheInvalidation() {
	globalManager.cacheInvalidations.Inc()
}

// RecordCacheInvalidationError increments the swallowed-failure counter.
func RecordCacheInvalidationError() {
	globalManager.cacheInvalidationErrors.Inc()
}

// RecordStoreError increments the database-error counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry for exposition handlers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
