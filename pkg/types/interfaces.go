package types

import (
	"context"
	"time"
)

// CacheService defines the caching interface injected into consumers.
// Implementations copy values in and out; callers never share backing arrays
// with the store.
type CacheService interface {
	// Get returns the cached value, or false if the key is missing or expired.
	Get(key string) ([]byte, bool)

	// Set stores a value under the store's default TTL policy.
	Set(key string, value []byte)

	// SetWithTTL stores a value with an explicit TTL. A ttl <= 0 means the
	// entry is already expired on the next Get.
	SetWithTTL(key string, value []byte, ttl time.Duration)

	// Invalidate removes an entry unconditionally. Absent keys are not an error.
	Invalidate(key string)

	// Clear removes all entries.
	Clear()

	// Stats returns lifetime hit/miss counters and current occupancy.
	Stats() CacheStats
}

// PerformanceMonitor defines the metrics recording interface injected into
// consumers. Record never blocks and never fails; metrics collection is
// strictly best-effort.
type PerformanceMonitor interface {
	Record(operation string, duration time.Duration, bytes int64, success bool)
	CurrentSystemMetrics() SystemMetrics
	Reset()
}

// OptimizableService is the duck-typed consumer capability the optimizer
// requires from any service it wires up.
type OptimizableService interface {
	SetCacheService(cache CacheService)
	SetPerformanceMonitor(monitor PerformanceMonitor)
}

// DOMOptimizer is the external collaborator for DOM-facing optimization
// actions (batching, deferred layout work). The core only triggers it.
type DOMOptimizer interface {
	OptimizeRendering(ctx context.Context) error
}
