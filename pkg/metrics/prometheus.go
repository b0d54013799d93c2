// Package metrics provides Prometheus metrics for the podium ranking service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring
	awards             *prometheus.CounterVec
	pointAdjustments   *prometheus.CounterVec
	adjustLatency      prometheus.Histogram
	lockFailures       prometheus.Counter
	knockedOut         prometheus.Counter
	finalisations      prometheus.Counter
	payouts            prometheus.Counter
	prizesAwarded      *prometheus.CounterVec
	indexEvictions     prometheus.Counter
	activeLeaderboards prometheus.Gauge

	// Durable store
	repositoryLatency *prometheus.HistogramVec

	// Notification queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDropped     *prometheus.CounterVec

	// Notification workers
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	notificationsSent *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.awards = auto.NewCounterVec(m.counter("awards_total",
		"Award attempts by outcome (awarded, unmatched, zero)"), []string{"outcome"})
	m.pointAdjustments = auto.NewCounterVec(m.counter("point_adjustments_total",
		"Per-user point adjustments by result (applied, skipped)"), []string{"result"})
	m.adjustLatency = auto.NewHistogram(m.histogram("adjust_latency_milliseconds",
		"Latency of a single locked point adjustment", m.histogramBuckets))
	m.lockFailures = auto.NewCounter(m.counter("lock_failures_total",
		"Per-entry locks that could not be obtained within the retry budget"))
	m.knockedOut = auto.NewCounter(m.counter("knocked_out_entries_total",
		"Entries removed by points knockouts"))
	m.finalisations = auto.NewCounter(m.counter("finalisations_total",
		"Leaderboards finalised"))
	m.payouts = auto.NewCounter(m.counter("payouts_total",
		"Leaderboards paid out"))
	m.prizesAwarded = auto.NewCounterVec(m.counter("prizes_awarded_total",
		"Prize award requests issued by prize kind"), []string{"kind"})
	m.indexEvictions = auto.NewCounter(m.counter("index_evictions_total",
		"Stale ids pruned from the active index"))
	m.activeLeaderboards = auto.NewGauge(m.gauge("active_leaderboards",
		"Leaderboards currently in the active index"))

	m.repositoryLatency = auto.NewHistogramVec(m.histogram("repository_latency_milliseconds",
		"Durable store operation latency", m.histogramBuckets), []string{"operation"})

	m.queueSize = auto.NewGauge(m.gauge("notify_queue_size",
		"Notifications waiting for delivery"))
	m.queueCapacity = auto.NewGauge(m.gauge("notify_queue_capacity",
		"Maximum notifications the queue holds"))
	m.queueUtilization = auto.NewGauge(m.gauge("notify_queue_utilization_ratio",
		"Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("notify_enqueued_total",
		"Notifications accepted by the queue"))
	m.queueDropped = auto.NewCounterVec(m.counter("notify_dropped_total",
		"Notifications dropped before delivery"), []string{"reason"})

	m.workerCount = auto.NewGauge(m.gauge("notify_workers",
		"Notification delivery workers"))
	m.workerLatency = auto.NewHistogram(m.histogram("notify_delivery_latency_milliseconds",
		"Time spent delivering one notification", m.histogramBuckets))
	m.notificationsSent = auto.NewCounterVec(m.counter("notifications_total",
		"Notification deliveries by kind and result"), []string{"kind", "result"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_time_milliseconds",
		"Average GC pause time", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAward counts an award attempt by outcome.
func RecordAward(outcome string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.awards.WithLabelValues(outcome).Inc()
}

// RecordPointAdjustment counts one per-user adjustment.
func RecordPointAdjustment(applied bool) {
	if !globalManager.Enabled() {
		return
	}
	result := "applied"
	if !applied {
		result = "skipped"
	}
	globalManager.pointAdjustments.WithLabelValues(result).Inc()
}

// RecordAdjustLatency records the latency of one locked adjustment.
func RecordAdjustLatency(latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.adjustLatency.Observe(latencyMs)
}

// RecordLockFailure counts a lock that could not be obtained.
func RecordLockFailure() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.lockFailures.Inc()
}

// RecordKnockout counts entries removed by a knockout.
func RecordKnockout(removed int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.knockedOut.Add(float64(removed))
}

// RecordFinalisation counts a finalised leaderboard.
func RecordFinalisation() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.finalisations.Inc()
}

// RecordPayout counts a paid-out leaderboard.
func RecordPayout() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.payouts.Inc()
}

// RecordPrizeAwarded counts a prize award request by kind.
func RecordPrizeAwarded(kind string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.prizesAwarded.WithLabelValues(kind).Inc()
}

// RecordIndexEviction counts stale ids pruned from the active index.
func RecordIndexEviction(n int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.indexEvictions.Add(float64(n))
}

// UpdateActiveLeaderboards sets the active index size.
func UpdateActiveLeaderboards(n int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.activeLeaderboards.Set(float64(n))
}

// RecordRepositoryLatency records a durable store operation latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an accepted notification.
func RecordQueueEnqueue() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDropped counts a notification the queue refused.
func RecordQueueDropped(reason string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of delivery workers.
func UpdateWorkerCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerLatency records how long one delivery took.
func RecordWorkerLatency(latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordNotification counts a delivery attempt.
func RecordNotification(kind string, ok bool) {
	if !globalManager.Enabled() {
		return
	}
	result := "delivered"
	if !ok {
		result = "failed"
	}
	globalManager.notificationsSent.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Get returns the manager behind the package-level recorders.
func Get() *Manager {
	return globalManager
}

// Configure applies runtime options to the global manager. Collector
// options such as namespace, buckets or labels only take effect in NewManager.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// Since returns the milliseconds elapsed since start, for the latency recorders.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
