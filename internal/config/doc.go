/*
Package config provides configuration management for the perfcore adaptive
performance subsystem.

Configuration is construction-time only: an optimizer is built from one
Configuration value and never reconfigured afterwards. A strategy or level
change means constructing a new optimizer.

# Sources

Configuration can come from three sources, applied in order:

 1. Defaults (NewDefault) or a named preset (Development, Production,
    Testing)
 2. A YAML file (LoadFromFile)
 3. Environment variable overrides with the PERFCORE_ prefix (LoadFromEnv)

# Presets

Development: aggressive level, short TTLs, frequent cleanup, metrics export
on, verbose logging, a fast background control loop.

Production: conservative level, long TTLs, warn-level logging, a one-minute
control loop.

Testing: all features enabled but deterministic. No cleanup sweeps, no
background timers, no export server.

# Validation

Validate fails fast on an unknown cache strategy or optimization level, on
unparsable sizes, and on out-of-range values. This is deliberately the only
hard failure in the subsystem; everything downstream degrades gracefully.

# Threshold scaling

The control-loop thresholds (memory high/critical water marks, slow response
time, DOM operation time) are configuration defaults, not constants. They
are scaled by the optimization level at construction: conservative x1.5,
balanced x1.0, aggressive x0.5.
*/
package config
