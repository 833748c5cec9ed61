// Package service contains the reference consumer of the perfcore
// subsystem: a read-through caching front for AI completion providers.
// Responses are keyed by a SHA-256 fingerprint of the full request, so any
// provider whose calls are deterministic per request can sit behind it. The
// service implements the optimizable contract and accepts injected cache
// and monitor implementations, falling back to no-ops when none are wired.
package service
