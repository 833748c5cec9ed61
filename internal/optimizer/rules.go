package optimizer

import (
	"context"
	"time"

	"github.com/perfcore/perfcore/pkg/types"
)

// rule is one row of the control-loop policy table: a named condition over
// the current metrics snapshot and the corrective action it triggers.
type rule struct {
	name      string
	triggered func(m types.SystemMetrics) bool
	action    func(ctx context.Context) error
}

// buildRules assembles the ordered policy table. Thresholds are already
// scaled by the optimization level at construction; evaluation order is
// fixed, memory pressure first.
func buildRules(o *Optimizer) []rule {
	t := o.thresholds

	rules := []rule{
		{
			name: "memory-high",
			triggered: func(m types.SystemMetrics) bool {
				return m.MemoryUsage.Used > t.MemoryHighBytes
			},
			action: o.OptimizeMemoryUsage,
		},
		{
			name: "slow-response",
			triggered: func(m types.SystemMetrics) bool {
				return overallAverageResponseTime(m) > t.SlowResponse
			},
			action: o.PreloadCriticalResources,
		},
	}

	if o.config.Features.DOMOptimization {
		rules = append(rules, rule{
			name: "dom-slow",
			triggered: func(m types.SystemMetrics) bool {
				return m.AverageResponseTimes["dom-query"] > t.DOMOperation
			},
			action: o.optimizeDOMRendering,
		})
	}

	return rules
}

// ApplyAutomaticOptimizations is the control-loop step: it reads the current
// metrics once and evaluates the policy table in order, running every
// triggered action. Each action is isolated; one failing or panicking action
// does not stop the rest. Always returns nil.
func (o *Optimizer) ApplyAutomaticOptimizations(ctx context.Context) error {
	if o.state.Load() != stateActive {
		return nil
	}

	m := o.currentMetrics()

	for _, r := range o.rules {
		if !r.triggered(m) {
			continue
		}
		o.logger.Debug("optimization rule triggered", map[string]interface{}{
			"rule": r.name,
		})
		o.runAction(ctx, r)
	}
	return nil
}

// runAction executes one rule's action behind its own recover boundary.
func (o *Optimizer) runAction(ctx context.Context, r rule) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("optimization action panicked", map[string]interface{}{
				"rule":  r.name,
				"panic": rec,
			})
		}
	}()

	if err := r.action(ctx); err != nil {
		o.logger.Warn("optimization action failed", map[string]interface{}{
			"rule":  r.name,
			"error": err.Error(),
		})
	}
}

// optimizeDOMRendering delegates to the attached DOM collaborator, if any.
func (o *Optimizer) optimizeDOMRendering(ctx context.Context) error {
	o.mu.Lock()
	d := o.domOpt
	monitor := o.monitor
	o.mu.Unlock()

	if d == nil {
		return nil
	}

	start := time.Now()
	err := d.OptimizeRendering(ctx)
	monitor.Record("dom-optimize", time.Since(start), 0, err == nil)
	if err != nil {
		o.logger.Warn("dom optimization failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// overallAverageResponseTime collapses per-operation averages into one
// count-weighted figure.
func overallAverageResponseTime(m types.SystemMetrics) time.Duration {
	var total int64
	var weighted time.Duration
	for op, avg := range m.AverageResponseTimes {
		count := m.OperationCounts[op]
		if count <= 0 {
			continue
		}
		total += count
		weighted += avg * time.Duration(count)
	}
	if total == 0 {
		return 0
	}
	return weighted / time.Duration(total)
}
