/*
Package metrics implements the performance monitoring side of perfcore.

Registry is the central collector. Every completed operation is recorded
into two structures: a bounded ring of raw samples (the newest MaxSamples
observations, older ones overwritten) and per-operation lifetime aggregates
(count, errors, slow operations, total duration). The ring bounds memory no
matter how long the process runs; the aggregates are a fixed-size summary
per operation name.

Recording is infallible. A monitor that can fail turns every instrumented
call site into an error path, so Record clamps bad input and returns
nothing. CurrentSystemMetrics likewise recovers internally and degrades to
a zero-valued snapshot rather than taking down a control loop that reads
it.

When export is enabled the registry mirrors recordings into Prometheus
counters and histograms and serves them over HTTP via promhttp. Reset
clears samples and aggregates but leaves Prometheus counters alone, since
those are cumulative by contract.

Noop is the disabled-monitoring stand-in wired by the optimizer when the
performance monitoring feature flag is off.
*/
package metrics
