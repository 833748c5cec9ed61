package optimizer

import (
	"fmt"
	"time"

	"github.com/perfcore/perfcore/pkg/types"
)

// Minimum cache hit rate before the report recommends tuning, applied only
// once the cache has seen enough traffic to make the rate meaningful.
const (
	lowHitRate        = 0.5
	minLookupsForRate = 10
)

// GenerateOptimizationReport derives a report from the current metrics
// snapshot and cache statistics. It never fails: a broken metrics read
// degrades to a report with zero-valued fields and no recommendations.
func (o *Optimizer) GenerateOptimizationReport() types.OptimizationReport {
	report := types.OptimizationReport{
		Timestamp:       time.Now(),
		Recommendations: []string{},
	}
	if o.state.Load() != stateActive {
		return report
	}

	cacheSvc, _, _ := o.live()
	m := o.currentMetrics()
	stats := cacheSvc.Stats()

	report.Performance = types.PerformanceBlock{
		AverageResponseTime: overallAverageResponseTime(m),
		CacheHitRate:        stats.HitRate,
		MemoryUsage:         m.MemoryUsage.Used,
		DOMOperationTime:    m.AverageResponseTimes["dom-query"],
	}
	report.Metrics = o.reportTotals(m)
	report.Recommendations = o.buildRecommendations(report.Performance, stats)

	return report
}

// GetPerformanceStatus classifies current health. A critical issue is
// raised when memory use exceeds the critical threshold; IsOptimized is
// true iff there are zero critical issues. Like report generation, it
// degrades to structurally valid defaults instead of failing.
func (o *Optimizer) GetPerformanceStatus() types.PerformanceStatus {
	status := types.PerformanceStatus{
		CriticalIssues:  []string{},
		Recommendations: []string{},
	}
	if o.state.Load() != stateActive {
		status.IsOptimized = true
		return status
	}

	cacheSvc, _, _ := o.live()
	m := o.currentMetrics()
	stats := cacheSvc.Stats()

	perf := types.PerformanceBlock{
		AverageResponseTime: overallAverageResponseTime(m),
		CacheHitRate:        stats.HitRate,
		MemoryUsage:         m.MemoryUsage.Used,
		DOMOperationTime:    m.AverageResponseTimes["dom-query"],
	}

	if perf.MemoryUsage > o.thresholds.MemoryCriticalBytes {
		status.CriticalIssues = append(status.CriticalIssues, fmt.Sprintf(
			"memory usage %d bytes exceeds critical threshold %d bytes",
			perf.MemoryUsage, o.thresholds.MemoryCriticalBytes))
	}

	status.Recommendations = o.buildRecommendations(perf, stats)
	status.Metrics = o.reportTotals(m)
	status.IsOptimized = len(status.CriticalIssues) == 0

	return status
}

// reportTotals prefers the registry's lifetime totals; when monitoring is
// disabled or a test monitor is injected, it falls back to deriving totals
// from the snapshot.
func (o *Optimizer) reportTotals(m types.SystemMetrics) types.ReportMetrics {
	if o.registry != nil {
		return o.registry.ReportTotals()
	}

	var totals types.ReportMetrics
	var weightedErr float64
	for op, count := range m.OperationCounts {
		totals.TotalOperations += count
		weightedErr += m.ErrorRates[op] * float64(count)
		if m.AverageResponseTimes[op] >= o.config.Monitoring.SlowOperation {
			totals.SlowOperations += count
		}
	}
	if totals.TotalOperations > 0 {
		totals.ErrorRate = weightedErr / float64(totals.TotalOperations)
		totals.SuccessRate = 1 - totals.ErrorRate
	}
	return totals
}

func (o *Optimizer) buildRecommendations(perf types.PerformanceBlock, stats types.CacheStats) []string {
	recs := []string{}

	if stats.Hits+stats.Misses >= minLookupsForRate && perf.CacheHitRate < lowHitRate {
		recs = append(recs, fmt.Sprintf(
			"cache hit rate below %.0f%%: consider increasing TTL or capacity", lowHitRate*100))
	}
	if perf.MemoryUsage > o.thresholds.MemoryHighBytes {
		recs = append(recs, "memory usage above high-water threshold: schedule memory optimization")
	}
	if perf.AverageResponseTime > o.thresholds.SlowResponse {
		recs = append(recs, fmt.Sprintf(
			"average response time %v exceeds %v: enable preloading of critical resources",
			perf.AverageResponseTime, o.thresholds.SlowResponse))
	}
	if o.config.Features.DOMOptimization && perf.DOMOperationTime > o.thresholds.DOMOperation {
		recs = append(recs, fmt.Sprintf(
			"DOM operations averaging %v: batch reads and defer layout work", perf.DOMOperationTime))
	}
	if stats.Capacity > 0 && stats.Utilization > 0.9 {
		recs = append(recs, "cache utilization above 90%: consider increasing capacity")
	}

	return recs
}
