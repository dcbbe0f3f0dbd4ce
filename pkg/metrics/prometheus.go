// Package metrics provides Prometheus metrics for the clashintel service.
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
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	snapshotsIngested  prometheus.Counter
	snapshotsDuplicate prometheus.Counter
	snapshotsRejected  *prometheus.CounterVec
	snapshotsStored    prometheus.Counter
	snapshotsPruned    prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            *prometheus.CounterVec

	// Derivation
	derivationLatency *prometheus.HistogramVec
	timelineItems     prometheus.Histogram
	milestonesEmitted prometheus.Counter
	totalPlayers      prometheus.Gauge

	// Repository
	repositoryLatency *prometheus.HistogramVec
	repositoryErrors  *prometheus.CounterVec

	// Cache
	cacheRequests  *prometheus.CounterVec
	cacheRefreshes *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clashintel",
		subsystem:        "dashboard",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.snapshotsIngested = m.counter("snapshots_ingested_total", "Snapshots accepted for ingestion")
	m.snapshotsDuplicate = m.counter("snapshots_duplicate_total", "Snapshots rejected because the player already has one for that date")
	m.snapshotsRejected = m.counterVec("snapshots_rejected_total", "Snapshots rejected before enqueueing", "reason")
	m.snapshotsStored = m.counter("snapshots_stored_total", "Snapshots persisted by ingestion workers")
	m.snapshotsPruned = m.counter("snapshots_pruned_total", "Snapshots removed by retention")

	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingestion queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Ingestion queue size divided by capacity")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Failed enqueue attempts", "reason")

	m.workerCount = m.gauge("worker_count", "Number of ingestion workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to persist one snapshot", m.histogramBuckets)
	m.workerErrors = m.counterVec("worker_errors_total", "Ingestion worker failures", "stage")

	m.derivationLatency = m.histogramVec("derivation_latency_milliseconds", "Timeline and milestone derivation latency", "kind")
	m.timelineItems = m.histogram("timeline_items", "Number of items in derived timelines", []float64{0, 1, 5, 10, 25, 50, 100, 250, 500})
	m.milestonesEmitted = m.counter("milestones_emitted_total", "Milestone highlights returned to clients")
	m.totalPlayers = m.gauge("total_players", "Players with at least one stored snapshot")

	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Store operation latency", "driver", "op")
	m.repositoryErrors = m.counterVec("repository_errors_total", "Store operation failures", "driver", "op")

	m.cacheRequests = m.counterVec("cache_requests_total", "Profile cache lookups", "result")
	m.cacheRefreshes = m.counterVec("cache_refreshes_total", "Profile cache background refreshes", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with status >= 400", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSnapshotIngested increments the accepted snapshot counter.
func RecordSnapshotIngested() { globalManager.snapshotsIngested.Inc() }

// RecordSnapshotDuplicate increments the duplicate snapshot counter.
func RecordSnapshotDuplicate() { globalManager.snapshotsDuplicate.Inc() }

// RecordSnapshotRejected counts a snapshot refused before enqueueing.
func RecordSnapshotRejected(reason string) {
	globalManager.snapshotsRejected.WithLabelValues(reason).Inc()
}

// RecordSnapshotStored increments the persisted snapshot counter.
func RecordSnapshotStored() { globalManager.snapshotsStored.Inc() }

// RecordSnapshotsPruned adds n to the retention counter.
func RecordSnapshotsPruned(n int) {
	if n > 0 {
		globalManager.snapshotsPruned.Add(float64(n))
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets queue utilization as a 0..1 ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of ingestion workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records how long one snapshot took to persist.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker failure at the given stage.
func RecordWorkerError(stage string) { globalManager.workerErrors.WithLabelValues(stage).Inc() }

// RecordDerivationLatency records derivation latency for "timeline" or "milestones".
func RecordDerivationLatency(kind string, latencyMs float64) {
	globalManager.derivationLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordTimelineItems records the size of a derived timeline.
func RecordTimelineItems(n int) { globalManager.timelineItems.Observe(float64(n)) }

// RecordMilestonesEmitted adds n to the emitted milestones counter.
func RecordMilestonesEmitted(n int) { globalManager.milestonesEmitted.Add(float64(n)) }

// UpdateTotalPlayers sets the number of known players.
func UpdateTotalPlayers(count int) { globalManager.totalPlayers.Set(float64(count)) }

// RecordRepositoryLatency records how long a store operation took.
func RecordRepositoryLatency(driver, op string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordRepositoryError counts a failed store operation.
func RecordRepositoryError(driver, op string) {
	globalManager.repositoryErrors.WithLabelValues(driver, op).Inc()
}

// RecordCacheRequest counts a cache lookup; result is hit, stale or miss.
func RecordCacheRequest(result string) { globalManager.cacheRequests.WithLabelValues(result).Inc() }

// RecordCacheRefresh counts a background refresh; outcome is ok or error.
func RecordCacheRefresh(outcome string) {
	globalManager.cacheRefreshes.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
