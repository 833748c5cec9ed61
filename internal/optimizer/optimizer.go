package optimizer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perfcore/perfcore/internal/cache"
	"github.com/perfcore/perfcore/internal/config"
	"github.com/perfcore/perfcore/internal/metrics"
	"github.com/perfcore/perfcore/pkg/errors"
	"github.com/perfcore/perfcore/pkg/types"
	"github.com/perfcore/perfcore/pkg/utils"
)

// Optimizer lifecycle states.
const (
	stateUninitialized int32 = iota
	stateActive
	stateDestroyed
)

// Optimizer owns one cache and one metrics registry, wires them into
// consumer services, and runs the threshold-driven control loop that applies
// corrective actions. Each Optimizer constructs its own sub-services; they
// are never shared across instances.
type Optimizer struct {
	config     *config.Configuration
	thresholds config.Thresholds
	logger     *utils.StructuredLogger

	state atomic.Int32

	// Real sub-services, nil when their feature flag is off. The interface
	// fields below always hold something usable (real or no-op), so call
	// sites never branch on feature flags.
	cacheStore *cache.Store
	registry   *metrics.Registry
	warm       *cache.PersistentStore

	cacheSvc types.CacheService
	monitor  types.PerformanceMonitor

	mu        sync.Mutex
	consumers []types.OptimizableService
	domOpt    types.DOMOptimizer

	rules []rule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs an Optimizer from cfg and brings it to the active state.
// Construction is the one place the subsystem fails hard: an invalid
// configuration returns an error instead of running misconfigured.
func New(cfg *config.Configuration) (*Optimizer, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	thresholds, err := cfg.ScaledThresholds()
	if err != nil {
		return nil, err
	}

	level, _ := utils.ParseLogLevel(cfg.Global.LogLevel)
	logger, err := utils.NewStructuredLogger(&utils.StructuredLoggerConfig{Level: level})
	if err != nil {
		return nil, err
	}

	o := &Optimizer{
		config:     cfg,
		thresholds: thresholds,
		logger:     logger.WithComponent("optimizer"),
		cacheSvc:   cache.NewNoop(),
		monitor:    metrics.NewNoop(),
		stopCh:     make(chan struct{}),
	}

	if cfg.Features.Caching {
		maxBytes, err := config.ParseSize(cfg.Cache.MaxBytes)
		if err != nil {
			maxBytes = 0
		}
		store, err := cache.New(&cache.Config{
			Strategy:        cache.Strategy(cfg.Cache.Strategy),
			Capacity:        cfg.Cache.Capacity,
			MaxBytes:        maxBytes,
			DefaultTTL:      cfg.Cache.DefaultTTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		o.cacheStore = store
		o.cacheSvc = store
	}

	if cfg.Features.PerformanceMonitoring {
		registry, err := metrics.NewRegistry(&metrics.Config{
			MaxSamples:    cfg.Monitoring.MaxSamples,
			SlowOperation: cfg.Monitoring.SlowOperation,
			ExportEnabled: cfg.Monitoring.ExportEnabled,
			Port:          cfg.Monitoring.MetricsPort,
			Logger:        logger,
		})
		if err != nil {
			o.teardown()
			return nil, err
		}
		o.registry = registry
		o.monitor = registry

		if o.cacheStore != nil {
			registry.SetCacheSizeFunc(o.cacheStore.SizeBytes)
		}
		if err := registry.Start(); err != nil {
			o.teardown()
			return nil, err
		}
	}

	if cfg.Features.LazyLoading && cfg.Preload.StorePath != "" {
		warm, err := cache.OpenPersistentStore(cfg.Preload.StorePath)
		if err != nil {
			// The warm store only feeds best-effort preloading; run without
			// it rather than failing construction.
			o.logger.Warn("warm store unavailable", map[string]interface{}{
				"path":  cfg.Preload.StorePath,
				"error": err.Error(),
			})
		} else {
			o.warm = warm
		}
	}

	o.rules = buildRules(o)
	o.state.Store(stateActive)

	if cfg.Global.AutoOptimizeInterval > 0 {
		o.wg.Add(1)
		go o.autoOptimizeLoop(cfg.Global.AutoOptimizeInterval)
	}

	o.logger.Info("optimizer active", map[string]interface{}{
		"level":      cfg.Features.OptimizationLevel,
		"caching":    cfg.Features.Caching,
		"monitoring": cfg.Features.PerformanceMonitoring,
	})

	return o, nil
}

// OptimizeAIService injects the cache and monitor (real or no-op stand-ins)
// into consumer through its setter extension points. Idempotent: calling it
// again re-injects with no duplicate registration.
func (o *Optimizer) OptimizeAIService(consumer types.OptimizableService) error {
	if consumer == nil {
		return errors.NewError(errors.ErrCodeValidationFailed, "cannot optimize a nil consumer").
			WithComponent("optimizer")
	}
	if o.state.Load() == stateDestroyed {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	consumer.SetCacheService(o.cacheSvc)
	consumer.SetPerformanceMonitor(o.monitor)

	for _, c := range o.consumers {
		if c == consumer {
			return nil
		}
	}
	o.consumers = append(o.consumers, consumer)
	return nil
}

// AttachDOMOptimizer registers the external collaborator that performs
// DOM-facing optimization when the control loop triggers it.
func (o *Optimizer) AttachDOMOptimizer(d types.DOMOptimizer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.domOpt = d
}

// CacheService returns the cache consumers are wired with (real or no-op).
func (o *Optimizer) CacheService() types.CacheService {
	svc, _, _ := o.live()
	return svc
}

// PerformanceMonitor returns the monitor consumers are wired with (real or
// no-op).
func (o *Optimizer) PerformanceMonitor() types.PerformanceMonitor {
	_, _, monitor := o.live()
	return monitor
}

// live returns the cache and monitor currently wired. ChangeCacheStrategy
// swaps these fields under the lock while the control loop is running, so
// every read goes through here; callers keep using the references they
// took even if a swap lands mid-operation.
func (o *Optimizer) live() (types.CacheService, *cache.Store, types.PerformanceMonitor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cacheSvc, o.cacheStore, o.monitor
}

// ChangeCacheStrategy replaces the live cache with a new store under the
// given strategy, migrating all unexpired entries. The strategy of a store
// is immutable, so this is the only supported way to change policy at
// runtime.
func (o *Optimizer) ChangeCacheStrategy(strategy string) error {
	if o.state.Load() != stateActive {
		return errors.NewError(errors.ErrCodeDestroyed, "optimizer is not active").
			WithComponent("optimizer")
	}

	parsed, err := cache.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Re-check under the lock: a Destroy may have won the race while this
	// call was waiting, and swapping stores during teardown would leak the
	// replacement.
	if o.state.Load() != stateActive {
		return errors.NewError(errors.ErrCodeDestroyed, "optimizer is not active").
			WithComponent("optimizer")
	}

	old := o.cacheStore
	if old == nil {
		return errors.NewError(errors.ErrCodeNotInitialized, "caching is disabled").
			WithComponent("optimizer")
	}
	if old.Strategy() == parsed {
		return nil
	}

	maxBytes, _ := config.ParseSize(o.config.Cache.MaxBytes)
	replacement, err := cache.New(&cache.Config{
		Strategy:        parsed,
		Capacity:        o.config.Cache.Capacity,
		MaxBytes:        maxBytes,
		DefaultTTL:      o.config.Cache.DefaultTTL,
		CleanupInterval: o.config.Cache.CleanupInterval,
	})
	if err != nil {
		return err
	}

	old.Migrate(replacement)
	old.Close()

	o.cacheStore = replacement
	o.cacheSvc = replacement
	if o.registry != nil {
		o.registry.SetCacheSizeFunc(replacement.SizeBytes)
	}

	// Re-inject so consumers drop their reference to the retired store.
	for _, c := range o.consumers {
		c.SetCacheService(replacement)
	}

	o.logger.Info("cache strategy changed", map[string]interface{}{
		"strategy": string(parsed),
		"migrated": replacement.Len(),
	})
	return nil
}

// Destroy stops the control loop, detaches consumers, and releases the
// cache, registry, and warm store. Safe to call multiple times and on an
// instance whose sub-services were never constructed.
func (o *Optimizer) Destroy() {
	if !o.state.CompareAndSwap(stateActive, stateDestroyed) {
		// Either already destroyed or never fully constructed; both are
		// no-ops.
		o.state.Store(stateDestroyed)
		return
	}

	close(o.stopCh)
	o.wg.Wait()

	o.mu.Lock()
	consumers := o.consumers
	o.consumers = nil
	o.domOpt = nil
	o.mu.Unlock()

	// Detached consumers fall back to stand-ins so late calls stay safe.
	noopCache := cache.NewNoop()
	noopMonitor := metrics.NewNoop()
	for _, c := range consumers {
		c.SetCacheService(noopCache)
		c.SetPerformanceMonitor(noopMonitor)
	}

	o.teardown()
	o.logger.Info("optimizer destroyed", nil)
}

func (o *Optimizer) teardown() {
	if o.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.registry.Stop(ctx); err != nil {
			o.logger.Warn("metrics export shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
	}
	if o.cacheStore != nil {
		o.cacheStore.Close()
	}
	if o.warm != nil {
		if err := o.warm.Close(); err != nil {
			o.logger.Warn("warm store close failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (o *Optimizer) autoOptimizeLoop(interval time.Duration) {
	defer o.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			_ = o.ApplyAutomaticOptimizations(context.Background())
		}
	}
}

// currentMetrics reads the monitor defensively: a panicking monitor yields a
// zero-valued snapshot instead of taking the caller down.
func (o *Optimizer) currentMetrics() (m types.SystemMetrics) {
	_, _, monitor := o.live()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("metrics read failed, degrading to empty snapshot", map[string]interface{}{
				"panic": rec,
			})
			m = types.SystemMetrics{Timestamp: time.Now()}
		}
	}()
	return monitor.CurrentSystemMetrics()
}
