package metrics

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perfcore/perfcore/pkg/types"
	"github.com/perfcore/perfcore/pkg/utils"
)

// DefaultMaxSamples bounds the in-memory sample ring when the configuration
// does not say otherwise.
const DefaultMaxSamples = 1024

// Config represents metrics registry configuration
type Config struct {
	MaxSamples    int
	SlowOperation time.Duration
	ExportEnabled bool
	Port          int
	Path          string
	Namespace     string
	Logger        *utils.StructuredLogger
}

// sample is one recorded operation. The ring holds the most recent
// MaxSamples of these; older samples are overwritten, never grown past the
// bound.
type sample struct {
	operation string
	duration  time.Duration
	bytes     int64
	success   bool
	at        time.Time
}

// opAggregate tracks lifetime totals for one operation name. Aggregates are
// not subject to the sample bound; they are a fixed-size summary per name.
type opAggregate struct {
	count         int64
	errors        int64
	slow          int64
	totalDuration time.Duration
	totalBytes    int64
	lastOperation time.Time
}

// Registry collects operation timings into a bounded sample ring and
// per-operation aggregates, and optionally exports them in Prometheus
// format. Record never fails and never blocks on export.
type Registry struct {
	mu         sync.RWMutex
	config     *Config
	samples    []sample
	next       int
	filled     bool
	aggregates map[string]*opAggregate
	lastReset  time.Time

	cacheSize func() int64

	logger *utils.StructuredLogger

	registry          *prometheus.Registry
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec
	cacheSizeGauge    prometheus.Gauge
	heapGauge         prometheus.Gauge

	server *http.Server
}

// NewRegistry creates a metrics registry. A nil config uses defaults.
func NewRegistry(config *Config) (*Registry, error) {
	if config == nil {
		config = &Config{}
	}
	if config.MaxSamples <= 0 {
		config.MaxSamples = DefaultMaxSamples
	}
	if config.SlowOperation <= 0 {
		config.SlowOperation = time.Second
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.Namespace == "" {
		config.Namespace = "perfcore"
	}

	logger := config.Logger
	if logger == nil {
		logger, _ = utils.NewStructuredLogger(nil)
	}

	r := &Registry{
		config:     config,
		samples:    make([]sample, config.MaxSamples),
		aggregates: make(map[string]*opAggregate),
		lastReset:  time.Now(),
		logger:     logger.WithComponent("metrics"),
	}

	if config.ExportEnabled {
		r.registry = prometheus.NewRegistry()
		r.initPrometheus()
		if err := r.registerPrometheus(); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return r, nil
}

// SetCacheSizeFunc installs the callback used to report live cache size in
// system metrics and the Prometheus gauge. A nil func reports zero.
func (r *Registry) SetCacheSizeFunc(fn func() int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheSize = fn
}

// Record records one completed operation. It never fails; malformed input
// (negative duration or byte count) is clamped to zero rather than rejected.
func (r *Registry) Record(operation string, duration time.Duration, bytes int64, success bool) {
	if duration < 0 {
		duration = 0
	}
	if bytes < 0 {
		bytes = 0
	}

	now := time.Now()

	r.mu.Lock()

	r.samples[r.next] = sample{
		operation: operation,
		duration:  duration,
		bytes:     bytes,
		success:   success,
		at:        now,
	}
	r.next++
	if r.next == len(r.samples) {
		r.next = 0
		r.filled = true
	}

	agg, exists := r.aggregates[operation]
	if !exists {
		agg = &opAggregate{}
		r.aggregates[operation] = agg
	}
	agg.count++
	agg.totalDuration += duration
	agg.totalBytes += bytes
	agg.lastOperation = now
	if !success {
		agg.errors++
	}
	if duration >= r.config.SlowOperation {
		agg.slow++
	}

	exportEnabled := r.config.ExportEnabled
	r.mu.Unlock()

	if !exportEnabled {
		return
	}

	r.operationCounter.With(prometheus.Labels{
		"operation": operation,
		"status":    map[bool]string{true: "success", false: "error"}[success],
	}).Inc()
	r.operationDuration.With(prometheus.Labels{
		"operation": operation,
	}).Observe(duration.Seconds())
	if bytes > 0 {
		r.operationSize.With(prometheus.Labels{
			"operation": operation,
		}).Observe(float64(bytes))
	}
}

// CurrentSystemMetrics returns a snapshot of per-operation aggregates plus
// process memory. It never panics; an internal failure yields a zero-valued
// snapshot so control loops reading it keep running.
func (r *Registry) CurrentSystemMetrics() (m types.SystemMetrics) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("system metrics snapshot failed", map[string]interface{}{
				"panic": fmt.Sprintf("%v", rec),
			})
			m = types.SystemMetrics{Timestamp: time.Now()}
		}
	}()

	r.mu.RLock()
	counts := make(map[string]int64, len(r.aggregates))
	avgTimes := make(map[string]time.Duration, len(r.aggregates))
	errRates := make(map[string]float64, len(r.aggregates))
	for name, agg := range r.aggregates {
		counts[name] = agg.count
		if agg.count > 0 {
			avgTimes[name] = agg.totalDuration / time.Duration(agg.count)
			errRates[name] = float64(agg.errors) / float64(agg.count)
		}
	}
	cacheSize := r.cacheSize
	r.mu.RUnlock()

	var cacheBytes int64
	if cacheSize != nil {
		cacheBytes = cacheSize()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m = types.SystemMetrics{
		OperationCounts:      counts,
		AverageResponseTimes: avgTimes,
		ErrorRates:           errRates,
		MemoryUsage: types.MemoryUsage{
			Used:       int64(ms.Alloc),
			HeapAlloc:  int64(ms.HeapAlloc),
			CacheBytes: cacheBytes,
		},
		Timestamp: time.Now(),
	}

	if r.config.ExportEnabled {
		r.heapGauge.Set(float64(ms.HeapAlloc))
		r.cacheSizeGauge.Set(float64(cacheBytes))
	}

	return m
}

// ReportTotals summarizes all recorded operations for optimization reports.
func (r *Registry) ReportTotals() types.ReportMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totals types.ReportMetrics
	var errors int64
	for _, agg := range r.aggregates {
		totals.TotalOperations += agg.count
		totals.SlowOperations += agg.slow
		errors += agg.errors
	}
	if totals.TotalOperations > 0 {
		totals.ErrorRate = float64(errors) / float64(totals.TotalOperations)
		totals.SuccessRate = 1 - totals.ErrorRate
	}
	return totals
}

// SampleCount returns the number of live samples in the ring, at most
// MaxSamples regardless of how many operations were recorded.
func (r *Registry) SampleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.filled {
		return len(r.samples)
	}
	return r.next
}

// Reset discards all samples and aggregates. Prometheus counters are
// cumulative by contract and are left untouched.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = make([]sample, r.config.MaxSamples)
	r.next = 0
	r.filled = false
	r.aggregates = make(map[string]*opAggregate)
	r.lastReset = time.Now()
}

// Start serves the Prometheus endpoint when export is enabled; otherwise it
// is a no-op.
func (r *Registry) Start() error {
	if !r.config.ExportEnabled || r.config.Port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(r.config.Path, promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	r.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", r.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("metrics server error", map[string]interface{}{
				"error": err.Error(),
				"port":  r.config.Port,
			})
		}
	}()

	return nil
}

// Stop shuts down the Prometheus endpoint if one was started.
func (r *Registry) Stop(ctx context.Context) error {
	if r.server != nil {
		return r.server.Shutdown(ctx)
	}
	return nil
}

func (r *Registry) initPrometheus() {
	r.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of recorded operations",
		},
		[]string{"operation", "status"},
	)

	r.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"operation"},
	)

	r.operationSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.config.Namespace,
			Name:      "operation_size_bytes",
			Help:      "Payload size of operations in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 12), // 64B to ~1GB
		},
		[]string{"operation"},
	)

	r.cacheSizeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: r.config.Namespace,
			Name:      "cache_size_bytes",
			Help:      "Current live cache size in bytes",
		},
	)

	r.heapGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: r.config.Namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Current heap allocation in bytes",
		},
	)
}

func (r *Registry) registerPrometheus() error {
	collectors := []prometheus.Collector{
		r.operationCounter,
		r.operationDuration,
		r.operationSize,
		r.cacheSizeGauge,
		r.heapGauge,
	}

	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
