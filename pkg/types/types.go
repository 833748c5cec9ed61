package types

import (
	"time"
)

// CacheStats represents cache performance statistics
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Size        int64   `json:"size"`
	Capacity    int64   `json:"capacity"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

// MemoryUsage is a coarse estimate of memory pressure attributable to the
// process and the live cache.
type MemoryUsage struct {
	Used       int64 `json:"used"`
	HeapAlloc  int64 `json:"heap_alloc"`
	CacheBytes int64 `json:"cache_bytes"`
}

// SystemMetrics is a point-in-time snapshot of aggregated operation outcomes.
// Maps are freshly allocated per snapshot; callers may mutate them freely.
type SystemMetrics struct {
	OperationCounts      map[string]int64         `json:"operation_counts"`
	AverageResponseTimes map[string]time.Duration `json:"average_response_times"`
	ErrorRates           map[string]float64       `json:"error_rates"`
	MemoryUsage          MemoryUsage              `json:"memory_usage"`
	Timestamp            time.Time                `json:"timestamp"`
}

// PerformanceBlock summarizes the headline performance figures of a report.
type PerformanceBlock struct {
	AverageResponseTime time.Duration `json:"average_response_time"`
	CacheHitRate        float64       `json:"cache_hit_rate"`
	MemoryUsage         int64         `json:"memory_usage"`
	DOMOperationTime    time.Duration `json:"dom_operation_time"`
}

// ReportMetrics carries the aggregate counters of a report.
type ReportMetrics struct {
	TotalOperations int64   `json:"total_operations"`
	SuccessRate     float64 `json:"success_rate"`
	ErrorRate       float64 `json:"error_rate"`
	SlowOperations  int64   `json:"slow_operations"`
}

// OptimizationReport is derived on demand from the metrics snapshot and cache
// stats; it is never stored.
type OptimizationReport struct {
	Timestamp       time.Time        `json:"timestamp"`
	Performance     PerformanceBlock `json:"performance"`
	Recommendations []string         `json:"recommendations"`
	Metrics         ReportMetrics    `json:"metrics"`
}

// PerformanceStatus classifies system health. IsOptimized is true iff there
// are zero critical issues.
type PerformanceStatus struct {
	IsOptimized     bool          `json:"is_optimized"`
	CriticalIssues  []string      `json:"critical_issues"`
	Recommendations []string      `json:"recommendations"`
	Metrics         ReportMetrics `json:"metrics"`
}
