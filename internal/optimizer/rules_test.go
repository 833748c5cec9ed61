package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perfcore/perfcore/internal/config"
	"github.com/perfcore/perfcore/pkg/types"
)

type stubDOMOptimizer struct {
	calls int
	err   error
}

func (s *stubDOMOptimizer) OptimizeRendering(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestApplyAutomaticOptimizations_MemoryTrigger(t *testing.T) {
	o := newTestOptimizer(t, nil)

	// 60MB forced usage against the default 50MB high-water threshold.
	stub := &stubMonitor{snapshot: types.SystemMetrics{
		MemoryUsage: types.MemoryUsage{Used: 60 * 1024 * 1024},
		Timestamp:   time.Now(),
	}}
	o.monitor = stub

	if err := o.ApplyAutomaticOptimizations(context.Background()); err != nil {
		t.Fatalf("ApplyAutomaticOptimizations: %v", err)
	}

	if stub.resets != 1 {
		t.Error("high memory must trigger memory optimization")
	}
	if stub.recorded("preload") != 0 {
		t.Error("fast responses must not trigger preloading")
	}
}

func TestApplyAutomaticOptimizations_SlowResponseTrigger(t *testing.T) {
	o := newTestOptimizer(t, nil)

	// 3000ms average against the default 2000ms threshold.
	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"ai-call": 10},
		AverageResponseTimes: map[string]time.Duration{"ai-call": 3 * time.Second},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	if err := o.ApplyAutomaticOptimizations(context.Background()); err != nil {
		t.Fatalf("ApplyAutomaticOptimizations: %v", err)
	}

	if stub.recorded("preload") != 1 {
		t.Error("slow responses must trigger preloading")
	}
	if stub.resets != 0 {
		t.Error("low memory must not trigger memory optimization")
	}
}

func TestApplyAutomaticOptimizations_NoTrigger(t *testing.T) {
	o := newTestOptimizer(t, nil)

	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"ai-call": 10},
		AverageResponseTimes: map[string]time.Duration{"ai-call": 50 * time.Millisecond},
		MemoryUsage:          types.MemoryUsage{Used: 1024},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	_ = o.ApplyAutomaticOptimizations(context.Background())

	if stub.resets != 0 || len(stub.records) != 0 {
		t.Errorf("healthy metrics must trigger no actions, got records=%v resets=%d",
			stub.records, stub.resets)
	}
}

func TestApplyAutomaticOptimizations_BothTriggers(t *testing.T) {
	o := newTestOptimizer(t, nil)

	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"ai-call": 10},
		AverageResponseTimes: map[string]time.Duration{"ai-call": 3 * time.Second},
		MemoryUsage:          types.MemoryUsage{Used: 60 * 1024 * 1024},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	_ = o.ApplyAutomaticOptimizations(context.Background())

	if stub.resets != 1 {
		t.Error("memory action must run")
	}
	if stub.recorded("preload") != 1 {
		t.Error("preload action must run as well")
	}
}

func TestApplyAutomaticOptimizations_DOMTrigger(t *testing.T) {
	o := newTestOptimizer(t, nil) // testing preset enables DOM optimization

	dom := &stubDOMOptimizer{}
	o.AttachDOMOptimizer(dom)

	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"dom-query": 5},
		AverageResponseTimes: map[string]time.Duration{"dom-query": 300 * time.Millisecond},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	_ = o.ApplyAutomaticOptimizations(context.Background())

	if dom.calls != 1 {
		t.Errorf("slow DOM timing must trigger the collaborator, got %d calls", dom.calls)
	}
}

func TestApplyAutomaticOptimizations_DOMDisabled(t *testing.T) {
	o := newTestOptimizer(t, func(c *config.Configuration) {
		c.Features.DOMOptimization = false
	})

	dom := &stubDOMOptimizer{}
	o.AttachDOMOptimizer(dom)

	o.monitor = &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"dom-query": 5},
		AverageResponseTimes: map[string]time.Duration{"dom-query": time.Second},
		Timestamp:            time.Now(),
	}}

	_ = o.ApplyAutomaticOptimizations(context.Background())

	if dom.calls != 0 {
		t.Error("DOM actions must not run when the feature is disabled")
	}
}

func TestApplyAutomaticOptimizations_FailingCollaboratorIsolated(t *testing.T) {
	o := newTestOptimizer(t, nil)

	dom := &stubDOMOptimizer{err: errors.New("layout thrash")}
	o.AttachDOMOptimizer(dom)

	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"dom-query": 5, "ai-call": 10},
		AverageResponseTimes: map[string]time.Duration{"dom-query": time.Second, "ai-call": 3 * time.Second},
		MemoryUsage:          types.MemoryUsage{Used: 60 * 1024 * 1024},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	if err := o.ApplyAutomaticOptimizations(context.Background()); err != nil {
		t.Fatalf("control loop must swallow collaborator failures: %v", err)
	}

	// Every other action still ran.
	if stub.resets != 1 || stub.recorded("preload") != 1 || dom.calls != 1 {
		t.Errorf("one failing action must not block the others: resets=%d preload=%d dom=%d",
			stub.resets, stub.recorded("preload"), dom.calls)
	}
}

func TestApplyAutomaticOptimizations_PanickingCollaboratorIsolated(t *testing.T) {
	o := newTestOptimizer(t, nil)

	o.AttachDOMOptimizer(&panickingDOMOptimizer{})

	stub := &stubMonitor{snapshot: types.SystemMetrics{
		OperationCounts:      map[string]int64{"dom-query": 5},
		AverageResponseTimes: map[string]time.Duration{"dom-query": time.Second},
		MemoryUsage:          types.MemoryUsage{Used: 60 * 1024 * 1024},
		Timestamp:            time.Now(),
	}}
	o.monitor = stub

	if err := o.ApplyAutomaticOptimizations(context.Background()); err != nil {
		t.Fatalf("control loop must swallow panicking actions: %v", err)
	}
	if stub.resets != 1 {
		t.Error("the memory rule must still have run")
	}
}

type panickingDOMOptimizer struct{}

func (p *panickingDOMOptimizer) OptimizeRendering(ctx context.Context) error {
	panic("render loop gone wrong")
}

func TestLevelScaling_AggressiveTriggersSooner(t *testing.T) {
	// 30MB usage: below the balanced 50MB threshold, above the aggressive
	// 25MB threshold.
	snapshot := types.SystemMetrics{
		MemoryUsage: types.MemoryUsage{Used: 30 * 1024 * 1024},
		Timestamp:   time.Now(),
	}

	balanced := newTestOptimizer(t, nil)
	balancedStub := &stubMonitor{snapshot: snapshot}
	balanced.monitor = balancedStub
	_ = balanced.ApplyAutomaticOptimizations(context.Background())
	if balancedStub.resets != 0 {
		t.Error("30MB must not trigger at balanced level")
	}

	aggressive := newTestOptimizer(t, func(c *config.Configuration) {
		c.Features.OptimizationLevel = config.LevelAggressive
	})
	aggressiveStub := &stubMonitor{snapshot: snapshot}
	aggressive.monitor = aggressiveStub
	_ = aggressive.ApplyAutomaticOptimizations(context.Background())
	if aggressiveStub.resets != 1 {
		t.Error("30MB must trigger at aggressive level")
	}
}

func TestOverallAverageResponseTime(t *testing.T) {
	tests := []struct {
		name string
		m    types.SystemMetrics
		want time.Duration
	}{
		{
			name: "empty snapshot",
			m:    types.SystemMetrics{},
			want: 0,
		},
		{
			name: "single operation",
			m: types.SystemMetrics{
				OperationCounts:      map[string]int64{"a": 4},
				AverageResponseTimes: map[string]time.Duration{"a": 100 * time.Millisecond},
			},
			want: 100 * time.Millisecond,
		},
		{
			name: "count weighted",
			m: types.SystemMetrics{
				OperationCounts:      map[string]int64{"a": 3, "b": 1},
				AverageResponseTimes: map[string]time.Duration{"a": 100 * time.Millisecond, "b": 500 * time.Millisecond},
			},
			want: 200 * time.Millisecond,
		},
		{
			name: "zero count ignored",
			m: types.SystemMetrics{
				OperationCounts:      map[string]int64{"a": 2, "b": 0},
				AverageResponseTimes: map[string]time.Duration{"a": 100 * time.Millisecond, "b": time.Hour},
			},
			want: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallAverageResponseTime(tt.m); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
