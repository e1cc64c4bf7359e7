package telemetry

import (
	"runtime"
	"time"

	"github.com/explainbench/explain-bench/internal/pkg/logger"
)

// Telemetry holds all application metrics.
type Telemetry struct {
	// Evaluation metrics
	EvalRequests   *Counter
	EvalLatency    *Histogram
	EvalErrors     *CounterVec   // labels: error_type
	MetricDuration *HistogramVec // labels: metric
	ExplainerCount *Histogram

	// Model oracle metrics
	ModelRequests *Counter
	ModelLatency  *Histogram
	ModelErrors   *Counter

	// Cache metrics
	CacheHits   *CounterVec // labels: type
	CacheMisses *CounterVec // labels: type
	CacheSize   *GaugeVec   // labels: type

	// Bus metrics
	BusEventsPublished *CounterVec // labels: topic
	BusErrors          *CounterVec // labels: topic

	// HTTP metrics
	HTTPRequests         *CounterVec   // labels: method, path, status
	HTTPDuration         *HistogramVec // labels: method, path
	HTTPRequestsInFlight *Gauge

	// System metrics
	GoroutineCount *Gauge
	MemoryUsage    *Gauge // bytes
	Uptime         *Counter

	// Rolling evaluation latency for the history endpoint.
	History *MetricHistory

	storage   *RedisStorage
	startTime time.Time
}

// New creates a telemetry instance with in-memory history only.
func New() *Telemetry {
	return NewWithConfig("", nil)
}

// NewWithConfig creates a telemetry instance. A non-empty redisURL enables
// Redis-backed history persistence; connection failure falls back to memory.
func NewWithConfig(redisURL string, log *logger.Logger) *Telemetry {
	if log == nil {
		log = logger.Default()
	}

	var storage *RedisStorage
	if redisURL != "" {
		s, err := NewRedisStorage(redisURL)
		if err != nil {
			log.WithError(err).Warn("redis history unavailable, using in-memory telemetry")
		} else {
			storage = s
		}
	}

	latencyBuckets := []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	t := &Telemetry{
		EvalRequests: NewCounter(
			"xb_eval_requests_total",
			"Total number of evaluation requests",
			nil,
		),
		EvalLatency: NewHistogram(
			"xb_eval_latency_ms",
			"Evaluation request latency in milliseconds",
			latencyBuckets,
		),
		EvalErrors: NewCounterVec(
			"xb_eval_errors_total",
			"Total number of evaluation errors",
			[]string{"error_type"},
		),
		MetricDuration: NewHistogramVec(
			"xb_metric_duration_ms",
			"Per-metric evaluation duration in milliseconds",
			[]string{"metric"},
			[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		),
		ExplainerCount: NewHistogram(
			"xb_explainers_per_request",
			"Number of explainer rows per evaluation request",
			[]float64{1, 2, 3, 5, 8, 13, 21, 34},
		),

		ModelRequests: NewCounter(
			"xb_model_requests_total",
			"Total number of classifier oracle calls",
			nil,
		),
		ModelLatency: NewHistogram(
			"xb_model_latency_ms",
			"Classifier oracle call latency in milliseconds",
			[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		),
		ModelErrors: NewCounter(
			"xb_model_errors_total",
			"Total number of classifier oracle errors",
			nil,
		),

		CacheHits: NewCounterVec(
			"xb_cache_hits_total",
			"Total number of cache hits",
			[]string{"type"},
		),
		CacheMisses: NewCounterVec(
			"xb_cache_misses_total",
			"Total number of cache misses",
			[]string{"type"},
		),
		CacheSize: NewGaugeVec(
			"xb_cache_size",
			"Current number of cached entries",
			[]string{"type"},
		),

		BusEventsPublished: NewCounterVec(
			"xb_bus_events_published_total",
			"Total number of bus events published",
			[]string{"topic"},
		),
		BusErrors: NewCounterVec(
			"xb_bus_errors_total",
			"Total number of bus publish errors",
			[]string{"topic"},
		),

		HTTPRequests: NewCounterVec(
			"xb_http_requests_total",
			"Total number of HTTP requests",
			[]string{"method", "path", "status"},
		),
		HTTPDuration: NewHistogramVec(
			"xb_http_duration_ms",
			"HTTP request duration in milliseconds",
			[]string{"method", "path"},
			latencyBuckets,
		),
		HTTPRequestsInFlight: NewGauge(
			"xb_http_requests_in_flight",
			"Number of HTTP requests currently being served",
			nil,
		),

		GoroutineCount: NewGauge(
			"xb_goroutines",
			"Current number of goroutines",
			nil,
		),
		MemoryUsage: NewGauge(
			"xb_memory_bytes",
			"Current heap memory usage in bytes",
			nil,
		),
		Uptime: NewCounter(
			"xb_uptime_seconds",
			"Process uptime in seconds",
			nil,
		),

		storage:   storage,
		startTime: time.Now(),
	}

	// 5-minute buckets, one hour of history.
	if storage != nil {
		t.History = NewMetricHistoryWithRedis(5*time.Minute, 12, storage, "eval_latency_ms")
	} else {
		t.History = NewMetricHistory(5*time.Minute, 12)
	}

	return t
}

// RecordEvaluation records one finished evaluation.
func (t *Telemetry) RecordEvaluation(latencyMS float64, explainers int) {
	t.EvalRequests.Inc()
	t.EvalLatency.Observe(latencyMS)
	t.ExplainerCount.Observe(float64(explainers))
	t.History.Record(latencyMS)
}

// RecordEvalError records a failed evaluation by error code.
func (t *Telemetry) RecordEvalError(errorType string) {
	t.EvalErrors.WithLabels(errorType).Inc()
}

// RecordModelCall records one classifier oracle round trip.
func (t *Telemetry) RecordModelCall(latencyMS float64, err error) {
	t.ModelRequests.Inc()
	t.ModelLatency.Observe(latencyMS)
	if err != nil {
		t.ModelErrors.Inc()
	}
}

// RecordCacheHit implements model.CacheMetrics.
func (t *Telemetry) RecordCacheHit(cacheType string) {
	t.CacheHits.WithLabels(cacheType).Inc()
}

// RecordCacheMiss implements model.CacheMetrics.
func (t *Telemetry) RecordCacheMiss(cacheType string) {
	t.CacheMisses.WithLabels(cacheType).Inc()
}

// UpdateCacheSize implements model.CacheMetrics.
func (t *Telemetry) UpdateCacheSize(cacheType string, size int) {
	t.CacheSize.WithLabels(cacheType).Set(float64(size))
}

// RecordBusEvent records a published bus event.
func (t *Telemetry) RecordBusEvent(topic string, err error) {
	if err != nil {
		t.BusErrors.WithLabels(topic).Inc()
		return
	}
	t.BusEventsPublished.WithLabels(topic).Inc()
}

// UpdateSystemMetrics refreshes goroutine, memory and uptime readings.
// Call periodically or before scraping.
func (t *Telemetry) UpdateSystemMetrics() {
	t.GoroutineCount.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	t.MemoryUsage.Set(float64(mem.HeapAlloc))

	uptime := int64(time.Since(t.startTime).Seconds())
	if delta := uptime - t.Uptime.Value(); delta > 0 {
		t.Uptime.Add(delta)
	}
}

// Close releases the Redis history connection, if any.
func (t *Telemetry) Close() error {
	if t.storage != nil {
		return t.storage.Close()
	}
	return nil
}
