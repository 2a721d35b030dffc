// Package metrics provides Prometheus metrics for the hockeyplots service.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Reconciliation
	reconcilePasses    *prometheus.CounterVec
	reconcileDuration  prometheus.Histogram
	gamesInserted      prometheus.Counter
	scoresInserted     prometheus.Counter
	scoresAttached     prometheus.Counter
	gamesSkipped       *prometheus.CounterVec
	persistenceErrors  *prometheus.CounterVec
	ledgerGames        prometheus.Gauge
	ledgerPendingGames prometheus.Gauge

	// Feed
	feedRequests    *prometheus.CounterVec
	feedLatency     prometheus.Histogram
	feedCacheLookup *prometheus.CounterVec
	fetchesInFlight prometheus.Gauge
	fetchesTotal    *prometheus.CounterVec
	batchesDropped  *prometheus.CounterVec

	// Handoff
	handoffDepth    prometheus.Gauge
	handoffCapacity prometheus.Gauge

	// Derivation
	seriesBuilds        prometheus.Counter
	seriesBuildDuration prometheus.Histogram
	snapshotLastUnix    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hockeyplots",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.reconcilePasses = m.counterVec("reconcile_passes_total", "Reconciliation passes by result", "result")
	m.reconcileDuration = m.histogram("reconcile_duration_seconds", "Duration of a full reconciliation pass")
	m.gamesInserted = m.counter("games_inserted_total", "Games written to the ledger")
	m.scoresInserted = m.counter("scores_inserted_total", "Scores written to the ledger together with a new game")
	m.scoresAttached = m.counter("scores_attached_total", "Scores attached to previously unscored games")
	m.gamesSkipped = m.counterVec("games_skipped_total", "Fetched games not written, by reason", "reason")
	m.persistenceErrors = m.counterVec("persistence_errors_total", "Ledger write failures by operation", "op")
	m.ledgerGames = m.gauge("ledger_games", "Games currently in the ledger")
	m.ledgerPendingGames = m.gauge("ledger_pending_games", "Ledger games without a score")

	m.feedRequests = m.counterVec("feed_requests_total", "Schedule requests by outcome", "status")
	m.feedLatency = m.histogram("feed_request_duration_seconds", "Schedule request latency")
	m.feedCacheLookup = m.counterVec("feed_cache_lookups_total", "Raw schedule cache lookups", "result")
	m.fetchesInFlight = m.gauge("fetches_in_flight", "Background season fetches currently running")
	m.fetchesTotal = m.counterVec("fetches_total", "Background season fetches by result", "result")
	m.batchesDropped = m.counterVec("batches_dropped_total", "Fetched batches dropped before reconciliation", "reason")

	m.handoffDepth = m.gauge("handoff_depth", "Batches waiting in the handoff channel")
	m.handoffCapacity = m.gauge("handoff_capacity", "Capacity of the handoff channel")

	m.seriesBuilds = m.counter("series_builds_total", "Series snapshots built")
	m.seriesBuildDuration = m.histogram("series_build_duration_seconds", "Time to build a series snapshot")
	m.snapshotLastUnix = m.gauge("snapshot_last_unix", "Unix time of the last published snapshot")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by route and method",
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and kind", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordReconcilePass records one pass and its duration. result is "ok" or "fatal".
func RecordReconcilePass(result string, d time.Duration) {
	globalManager.reconcilePasses.WithLabelValues(result).Inc()
	globalManager.reconcileDuration.Observe(d.Seconds())
}

// RecordGamesInserted adds n to the inserted games counter.
func RecordGamesInserted(n int) { globalManager.gamesInserted.Add(float64(n)) }

// RecordScoresInserted adds n to the inserted scores counter.
func RecordScoresInserted(n int) { globalManager.scoresInserted.Add(float64(n)) }

// RecordScoresAttached adds n to the attached scores counter.
func RecordScoresAttached(n int) { globalManager.scoresAttached.Add(float64(n)) }

// RecordGamesSkipped adds n skipped games for a reason.
func RecordGamesSkipped(reason string, n int) {
	if n == 0 {
		return
	}
	globalManager.gamesSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordPersistenceError counts a failed ledger write.
func RecordPersistenceError(op string) {
	globalManager.persistenceErrors.WithLabelValues(op).Inc()
}

// UpdateLedgerSize sets the ledger gauges.
func UpdateLedgerSize(games, pending int) {
	globalManager.ledgerGames.Set(float64(games))
	globalManager.ledgerPendingGames.Set(float64(pending))
}

// RecordFeedRequest records a schedule request outcome and latency.
func RecordFeedRequest(status string, d time.Duration) {
	globalManager.feedRequests.WithLabelValues(status).Inc()
	globalManager.feedLatency.Observe(d.Seconds())
}

// RecordFeedCacheLookup records a cache "hit", "miss" or "error".
func RecordFeedCacheLookup(result string) {
	globalManager.feedCacheLookup.WithLabelValues(result).Inc()
}

// UpdateFetchesInFlight sets the number of running background fetches.
func UpdateFetchesInFlight(n int64) { globalManager.fetchesInFlight.Set(float64(n)) }

// RecordFetch records a finished background fetch.
func RecordFetch(result string) { globalManager.fetchesTotal.WithLabelValues(result).Inc() }

// RecordBatchDropped counts a batch that never reached the reconciler.
func RecordBatchDropped(reason string) {
	globalManager.batchesDropped.WithLabelValues(reason).Inc()
}

// UpdateHandoffDepth sets the handoff channel depth.
func UpdateHandoffDepth(n int) { globalManager.handoffDepth.Set(float64(n)) }

// UpdateHandoffCapacity sets the handoff channel capacity.
func UpdateHandoffCapacity(n int) { globalManager.handoffCapacity.Set(float64(n)) }

// RecordSeriesBuild records a published snapshot.
func RecordSeriesBuild(d time.Duration) {
	globalManager.seriesBuilds.Inc()
	globalManager.seriesBuildDuration.Observe(d.Seconds())
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(d.Seconds())
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemStats samples heap usage and goroutine count.
func UpdateSystemStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// RefreshInterval returns how often UpdateSystemStats should run.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Enabled reports whether collection is on for the global manager.
func Enabled() bool { return globalManager.enabled }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
