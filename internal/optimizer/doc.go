/*
Package optimizer implements the perfcore control loop.

An Optimizer owns exactly one cache and one metrics registry, constructed
per its configuration (feature flags select real implementations or no-op
stand-ins, so call sites never branch on flags). Consumers are wired in via
OptimizeAIService, which injects the cache and monitor through the
consumer's setter extension points.

Policy lives in an ordered rule table built at construction from the
level-scaled thresholds. ApplyAutomaticOptimizations reads the metrics
snapshot once, evaluates the table in order (memory pressure first, then
response time, then DOM timing), and runs every triggered action behind an
individual recover boundary. All control-loop operations degrade gracefully
and return nil; construction-time misconfiguration is the only hard
failure.

Lifecycle is a three-state machine: uninitialized, active, destroyed.
Destroy is idempotent, detaches consumers back to no-op stand-ins, stops
the background loop, and releases all sub-services. Operations called after
Destroy are safe no-ops.
*/
package optimizer
