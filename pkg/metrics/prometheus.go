// Package metrics provides Prometheus metrics for the Ladle progression service.
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

// Manager manages all Prometheus metrics for the progression service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - award pipeline
	awardsApplied    prometheus.Counter
	awardsDuplicate  prometheus.Counter
	awardsRejected   prometheus.Counter
	awardLatency     prometheus.Histogram
	xpGranted        prometheus.Counter
	levelUps         prometheus.Counter
	streakContinues  prometheus.Counter
	streakResets     prometheus.Counter
	unlocks          *prometheus.CounterVec
	rewardDraws      *prometheus.CounterVec
	tierPromotions   prometheus.Counter
	versionConflicts prometheus.Counter

	// Operational Health Metrics
	workerCount prometheus.Gauge
	totalUsers  prometheus.Gauge

	// Leaderboard Snapshot Metrics
	snapshotRebuildDuration prometheus.Histogram
	snapshotRebuildCount    prometheus.Counter
	snapshotLastUnix        prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository Metrics
	repositoryShardCount    prometheus.Gauge
	repositoryRecordsTotal  prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram

	// Queue Metrics - rank notice fan-out
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueDrops       prometheus.Counter

	// Enhanced Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ladle",
		subsystem:        "progression",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.awardsApplied = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "awards_applied_total",
		Help:      "Total number of XP awards applied",
	})
	m.awardsDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "awards_duplicate_total",
		Help:      "Total number of awards answered from the idempotency cache",
	})
	m.awardsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "awards_rejected_total",
		Help:      "Total number of awards rejected by validation",
	})
	m.awardLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "award_latency_ms",
		Help:      "Latency of the award path in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.xpGranted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "xp_granted_total",
		Help:      "Total XP granted across all users",
	})
	m.levelUps = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "level_ups_total",
		Help:      "Total number of level-ups",
	})
	m.streakContinues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_continues_total",
		Help:      "Total number of streak continuations",
	})
	m.streakResets = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_resets_total",
		Help:      "Total number of streak resets",
	})
	m.unlocks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "achievement_unlocks_total",
		Help:      "Total achievement unlocks by achievement id",
	}, []string{"achievement"})
	m.rewardDraws = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reward_draws_total",
		Help:      "Total mystery box draws by reward tier",
	}, []string{"tier"})
	m.tierPromotions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "creator_tier_promotions_total",
		Help:      "Total creator tier promotions",
	})
	m.versionConflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "version_conflicts_total",
		Help:      "Total optimistic version conflicts during award apply",
	})

	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of ranker workers",
	})
	m.totalUsers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_users",
		Help:      "Number of users tracked by the progress store",
	})

	m.snapshotRebuildDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_rebuild_duration_ms",
		Help:      "Duration of leaderboard snapshot rebuilds in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.snapshotRebuildCount = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_rebuilds_total",
		Help:      "Total leaderboard snapshot rebuilds",
	})
	m.snapshotLastUnix = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_last_rebuild_unix",
		Help:      "Unix timestamp of the last leaderboard snapshot rebuild",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.repositoryShardCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_shard_count",
		Help:      "Number of shards in the progress store",
	})
	m.repositoryRecordsTotal = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_records_total",
		Help:      "Total user records in the progress store",
	})
	m.repositoryUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_ms",
		Help:      "Latency of progress store updates in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued rank notices",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Capacity of the rank notice queue",
	})
	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Utilization of the rank notice queue (0.0-1.0)",
	})
	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total rank notices enqueued",
	})
	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total rank notices dequeued",
	})
	m.queueDrops = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_drops_total",
		Help:      "Total rank notices dropped due to backpressure",
	})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current memory usage in bytes",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
	m.systemGCPauseTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_ms",
		Help:      "GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers against the global manager.

// RecordAwardApplied increments the applied award counter.
func RecordAwardApplied() {
	if globalManager != nil && globalManager.enabled {
		globalManager.awardsApplied.Inc()
	}
}

// RecordAwardDuplicate increments the duplicate award counter.
func RecordAwardDuplicate() {
	if globalManager != nil && globalManager.enabled {
		globalManager.awardsDuplicate.Inc()
	}
}

// RecordAwardRejected increments the rejected award counter.
func RecordAwardRejected() {
	if globalManager != nil && globalManager.enabled {
		globalManager.awardsRejected.Inc()
	}
}

// RecordAwardLatency records the award path latency.
func RecordAwardLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.awardLatency.Observe(latencyMs)
	}
}

// RecordXPGranted adds to the XP granted counter.
func RecordXPGranted(amount float64) {
	if globalManager != nil && globalManager.enabled && amount > 0 {
		globalManager.xpGranted.Add(amount)
	}
}

// RecordLevelUp increments the level-up counter.
func RecordLevelUp() {
	if globalManager != nil && globalManager.enabled {
		globalManager.levelUps.Inc()
	}
}

// RecordStreakContinue increments the streak continuation counter.
func RecordStreakContinue() {
	if globalManager != nil && globalManager.enabled {
		globalManager.streakContinues.Inc()
	}
}

// RecordStreakReset increments the streak reset counter.
func RecordStreakReset() {
	if globalManager != nil && globalManager.enabled {
		globalManager.streakResets.Inc()
	}
}

// RecordUnlock increments the unlock counter for an achievement.
func RecordUnlock(achievementID string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.unlocks.WithLabelValues(achievementID).Inc()
	}
}

// RecordRewardDraw increments the reward draw counter for a tier.
func RecordRewardDraw(tier string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.rewardDraws.WithLabelValues(tier).Inc()
	}
}

// RecordTierPromotion increments the creator tier promotion counter.
func RecordTierPromotion() {
	if globalManager != nil && globalManager.enabled {
		globalManager.tierPromotions.Inc()
	}
}

// RecordVersionConflict increments the optimistic version conflict counter.
func RecordVersionConflict() {
	if globalManager != nil && globalManager.enabled {
		globalManager.versionConflicts.Inc()
	}
}

// UpdateWorkerCount sets the ranker worker gauge.
func UpdateWorkerCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateTotalUsers sets the tracked user gauge.
func UpdateTotalUsers(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.totalUsers.Set(float64(count))
	}
}

// RecordSnapshotRebuild records a leaderboard snapshot rebuild.
func RecordSnapshotRebuild(durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.snapshotRebuildDuration.Observe(durationMs)
		globalManager.snapshotRebuildCount.Inc()
		globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// UpdateRepositoryShardCount sets the shard count gauge.
func UpdateRepositoryShardCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.repositoryShardCount.Set(float64(count))
	}
}

// UpdateRepositoryRecordsTotal sets the record count gauge.
func UpdateRepositoryRecordsTotal(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.repositoryRecordsTotal.Set(float64(count))
	}
}

// RecordRepositoryUpdateLatency records a store update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.repositoryUpdateLatency.Observe(latencyMs)
	}
}

// UpdateQueueSize sets the queue size gauge.
func UpdateQueueSize(size int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueEnqueues.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueDequeues.Inc()
	}
}

// RecordQueueDrop increments the backpressure drop counter.
func RecordQueueDrop() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueDrops.Inc()
	}
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry for the /metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
