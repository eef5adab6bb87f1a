// Package metrics provides Prometheus metrics for the allocation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

var (
	defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}
	defaultRatioBuckets   = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}
)

// Manager owns every Prometheus collector of the engine.
type Manager struct {
	namespace       string
	subsystem       string
	metricPrefix    string
	latencyBuckets  []float64
	ratioBuckets    []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Allocation
	assignments         *prometheus.CounterVec
	candidatesEvaluated prometheus.Histogram
	belowSkillFloor     prometheus.Counter
	scoringLatency      prometheus.Histogram
	reassignments       prometheus.Counter
	completions         prometheus.Counter
	estimationAccuracy  prometheus.Histogram
	performanceChange   prometheus.Histogram
	skillGrowth         prometheus.Counter
	recommendations     prometheus.Counter
	recommendLatency    prometheus.Histogram

	// Store snapshot
	workersTotal      prometheus.Gauge
	openItems         prometheus.Gauge
	activeAssignments prometheus.Gauge

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueDuplicates        prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker pool
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Resilience
	retries          *prometheus.CounterVec
	lockWait         prometheus.Histogram
	lockFailures     prometheus.Counter
	publishFailures  *prometheus.CounterVec
	breakerOpenState *prometheus.GaugeVec

	// Scheduler
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	scanOutcomes *prometheus.CounterVec

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
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "tekista",
		subsystem:       "engine",
		latencyBuckets:  defaultLatencyBuckets,
		ratioBuckets:    defaultRatioBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is the cadence at which gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	lat := m.latencyBuckets

	m.assignments = auto.NewCounterVec(m.counterOpts("assignments_total",
		"Assignment attempts by strategy and outcome"), []string{"strategy", "outcome"})
	m.candidatesEvaluated = auto.NewHistogram(m.histogramOpts("candidates_evaluated",
		"Candidates scored per assignment attempt", []float64{0, 1, 2, 5, 10, 25, 50, 100, 250}))
	m.belowSkillFloor = auto.NewCounter(m.counterOpts("below_skill_floor_total",
		"Candidates discarded for skill match under the floor"))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_latency_milliseconds",
		"Time to score a candidate pool in milliseconds", lat))
	m.reassignments = auto.NewCounter(m.counterOpts("reassignments_total",
		"Assignments cancelled by reassignment"))
	m.completions = auto.NewCounter(m.counterOpts("completions_total",
		"Assignments completed"))
	m.estimationAccuracy = auto.NewHistogram(m.histogramOpts("estimation_accuracy_ratio",
		"Accuracy ratio of estimated to actual hours on completion", m.ratioBuckets))
	m.performanceChange = auto.NewHistogram(m.histogramOpts("performance_score_change",
		"Performance score delta per recompute", []float64{-20, -10, -5, -1, 0, 1, 5, 10, 20}))
	m.skillGrowth = auto.NewCounter(m.counterOpts("skill_growth_points_total",
		"Proficiency points added to skill ledgers"))
	m.recommendations = auto.NewCounter(m.counterOpts("recommendations_total",
		"Recommendations returned to callers"))
	m.recommendLatency = auto.NewHistogram(m.histogramOpts("recommendation_latency_milliseconds",
		"Time to rank open items for a worker in milliseconds", lat))

	m.workersTotal = auto.NewGauge(m.gaugeOpts("workers", "Workers known to the store"))
	m.openItems = auto.NewGauge(m.gaugeOpts("open_items", "Items waiting for assignment"))
	m.activeAssignments = auto.NewGauge(m.gaugeOpts("active_assignments", "Assignments in progress"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current request queue length"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue length over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Requests enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Requests dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Requests rejected by a full or closed queue"))
	m.queueDuplicates = auto.NewCounter(m.counterOpts("queue_duplicates_total", "Requests dropped as duplicates"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds",
		"Time from enqueue to processing start in milliseconds", lat))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured pool goroutines"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Pool goroutines currently processing"))
	m.workerIdleCount = auto.NewGauge(m.gaugeOpts("worker_idle_count", "Pool goroutines waiting for work"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gaugeOpts("worker_messages_per_second", "Average requests processed per second"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Request processing latency in milliseconds", lat))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Requests that failed in the pool"))

	m.retries = auto.NewCounterVec(m.counterOpts("retries_total", "Retried operations"), []string{"operation"})
	m.lockWait = auto.NewHistogram(m.histogramOpts("lock_wait_milliseconds", "Time spent waiting for an item lock", lat))
	m.lockFailures = auto.NewCounter(m.counterOpts("lock_failures_total", "Item lock acquisitions that failed"))
	m.publishFailures = auto.NewCounterVec(m.counterOpts("event_publish_failures_total",
		"Domain events that could not be published"), []string{"event"})
	m.breakerOpenState = auto.NewGaugeVec(m.gaugeOpts("circuit_breaker_open",
		"1 when the named circuit breaker is open"), []string{"name"})

	m.jobRuns = auto.NewCounterVec(m.counterOpts("job_runs_total", "Scheduled job runs"), []string{"job", "result"})
	m.jobDuration = auto.NewHistogramVec(m.histogramOpts("job_duration_milliseconds",
		"Scheduled job duration in milliseconds", []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000}), []string{"job"})
	m.scanOutcomes = auto.NewCounterVec(m.counterOpts("scan_items_total",
		"Items handled by the auto-assign scan by outcome"), []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", lat), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordAssignment counts an assignment attempt.
func RecordAssignment(strategy, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.assignments.WithLabelValues(strategy, outcome).Inc()
}

// RecordCandidatesEvaluated observes the size of a scored candidate pool.
func RecordCandidatesEvaluated(n int) {
	globalManager.candidatesEvaluated.Observe(float64(n))
}

// RecordBelowSkillFloor counts candidates discarded by the skill floor.
func RecordBelowSkillFloor(n int) {
	globalManager.belowSkillFloor.Add(float64(n))
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordReassignment counts a cancelled-by-reassignment assignment.
func RecordReassignment() { globalManager.reassignments.Inc() }

// RecordCompletion counts a completed assignment and its accuracy ratio.
func RecordCompletion(accuracy float64) {
	globalManager.completions.Inc()
	globalManager.estimationAccuracy.Observe(accuracy)
}

// RecordPerformanceChange observes a performance score delta.
func RecordPerformanceChange(delta float64) {
	globalManager.performanceChange.Observe(delta)
}

// RecordSkillGrowth adds proficiency points granted.
func RecordSkillGrowth(points float64) {
	if points > 0 {
		globalManager.skillGrowth.Add(points)
	}
}

// RecordRecommendations counts served recommendations and ranking latency.
func RecordRecommendations(n int, latencyMs float64) {
	globalManager.recommendations.Add(float64(n))
	globalManager.recommendLatency.Observe(latencyMs)
}

// UpdateStoreTotals sets the store snapshot gauges.
func UpdateStoreTotals(workers, openItems, activeAssignments int) {
	globalManager.workersTotal.Set(float64(workers))
	globalManager.openItems.Set(float64(openItems))
	globalManager.activeAssignments.Set(float64(activeAssignments))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueDuplicate counts a request dropped as a duplicate.
func RecordQueueDuplicate() { globalManager.queueDuplicates.Inc() }

// RecordQueueProcessingLatency records queue wait time.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy pool goroutines.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerIdleCount sets the number of idle pool goroutines.
func UpdateWorkerIdleCount(count int) { globalManager.workerIdleCount.Set(float64(count)) }

// UpdateWorkerMessagesPerSecond sets the average processing rate.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records request processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordRetry counts a retried attempt of operation.
func RecordRetry(operation string) { globalManager.retries.WithLabelValues(operation).Inc() }

// RecordLockWait observes time spent acquiring an item lock.
func RecordLockWait(latencyMs float64) { globalManager.lockWait.Observe(latencyMs) }

// RecordLockFailure counts a failed lock acquisition.
func RecordLockFailure() { globalManager.lockFailures.Inc() }

// RecordPublishFailure counts an event that could not be published.
func RecordPublishFailure(event string) { globalManager.publishFailures.WithLabelValues(event).Inc() }

// UpdateBreakerOpen flags whether the named breaker is open.
func UpdateBreakerOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	globalManager.breakerOpenState.WithLabelValues(name).Set(v)
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, result string, duration time.Duration) {
	globalManager.jobRuns.WithLabelValues(job, result).Inc()
	globalManager.jobDuration.WithLabelValues(job).Observe(float64(duration.Milliseconds()))
}

// RecordScanOutcome counts an item handled by the auto-assign scan.
func RecordScanOutcome(outcome string) { globalManager.scanOutcomes.WithLabelValues(outcome).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
