package optimizer

import (
	"context"
	"time"
)

// Fraction of entries spilled and evicted when memory pressure triggers a
// reclaim.
const evictFraction = 0.25

// PreloadCriticalResources warms the cache with the hottest entries from the
// persistent warm store. It always returns nil: preloading is best-effort
// and individual failures are logged and recorded, never surfaced. Disabled
// lazy loading makes it a verified no-op.
func (o *Optimizer) PreloadCriticalResources(ctx context.Context) error {
	if o.state.Load() != stateActive {
		return nil
	}
	if !o.config.Features.LazyLoading {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("preload panicked", map[string]interface{}{"panic": rec})
		}
	}()

	start := time.Now()
	_, store, monitor := o.live()

	if o.warm == nil || store == nil {
		monitor.Record("preload", time.Since(start), 0, true)
		return nil
	}

	entries, err := o.warm.HotEntries(o.config.Preload.WarmKeys)
	if err != nil {
		o.logger.Warn("preload read failed", map[string]interface{}{"error": err.Error()})
		monitor.Record("preload", time.Since(start), 0, false)
		return nil
	}

	var loaded int
	var bytes int64
	now := time.Now()
	for _, e := range entries {
		select {
		case <-ctx.Done():
			monitor.Record("preload", time.Since(start), bytes, false)
			return nil
		default:
		}

		if e.ExpiresAt.IsZero() {
			store.Set(e.Key, e.Value)
		} else if remaining := e.ExpiresAt.Sub(now); remaining > 0 {
			store.SetWithTTL(e.Key, e.Value, remaining)
		} else {
			continue
		}
		loaded++
		bytes += int64(len(e.Value))
	}

	monitor.Record("preload", time.Since(start), bytes, true)
	o.logger.Debug("preload complete", map[string]interface{}{
		"loaded":  loaded,
		"skipped": len(entries) - loaded,
	})
	return nil
}

// OptimizeMemoryUsage reduces memory pressure by evicting a fraction of
// cache entries (spilling them to the warm store when one is available) and
// resetting the metrics aggregates. It always returns nil; internal errors
// are swallowed and recorded.
func (o *Optimizer) OptimizeMemoryUsage(ctx context.Context) error {
	if o.state.Load() != stateActive {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("memory optimization panicked", map[string]interface{}{"panic": rec})
		}
	}()

	start := time.Now()
	success := true
	_, store, monitor := o.live()

	if store != nil {
		evicted := store.EvictFraction(evictFraction)
		if o.warm != nil && len(evicted) > 0 {
			if err := o.warm.PutAll(evicted); err != nil {
				o.logger.Warn("spill to warm store failed", map[string]interface{}{
					"entries": len(evicted),
					"error":   err.Error(),
				})
				success = false
			}
		}
		o.logger.Debug("memory pressure eviction", map[string]interface{}{
			"evicted":   len(evicted),
			"remaining": store.Len(),
		})
	}

	monitor.Record("optimize-memory", time.Since(start), 0, success)
	monitor.Reset()
	return nil
}
