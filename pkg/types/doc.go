/*
Package types provides the core interfaces and data structures shared across
the perfcore adaptive performance subsystem.

This package defines the contracts between the three core components and the
consumers they serve:

	┌─────────────────────────────────────────────┐
	│            Hosting Process / Shell          │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│               Optimizer                     │
	│          (internal/optimizer)               │
	└─────────────────────────────────────────────┘
	          │          │           │
	┌─────────┴──┐ ┌─────┴─────┐ ┌───┴─────────┐
	│   Cache    │ │ Metrics   │ │ Consumers   │
	│            │ │ Registry  │ │ (services)  │
	└────────────┘ └───────────┘ └─────────────┘

# Core Interfaces

CacheService:
The strategy-pluggable key/value store injected into consumers for
read-through caching. Values are copied on the way in and out, lookups honor
per-entry expiry, and lifetime hit/miss statistics are exposed via Stats.

PerformanceMonitor:
The operation-outcome recorder injected into consumers. Record accepts an
operation kind, duration, byte count, and success flag; it never blocks and
never fails. CurrentSystemMetrics returns an internally consistent snapshot.

OptimizableService:
The two setter-style extension points (SetCacheService,
SetPerformanceMonitor) a consumer must expose to be wired by the optimizer.
Wiring is idempotent; calling it twice simply re-injects.

DOMOptimizer:
An external collaborator for DOM-facing optimization actions. The core only
triggers it, guarded by its feature flag; it never implements DOM work.

# Data Structures

SystemMetrics carries per-operation counts, latency averages, and error
rates plus a coarse memory estimate. OptimizationReport and
PerformanceStatus are derived views produced by the optimizer; neither is
stored between calls.

# Interface Contracts

All interfaces in this package follow these principles:

 1. Injection over globals: services are constructed by and owned by one
    optimizer instance; nothing here is a process-wide singleton.
 2. Best-effort observability: monitor implementations must degrade to
    zero-value snapshots rather than propagate internal failures.
 3. No-op stand-ins: every injectable capability has a safe no-op variant
    selected at construction when its feature flag is disabled.
*/
package types
