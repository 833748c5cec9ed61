package cache

import (
	"time"

	"github.com/perfcore/perfcore/pkg/types"
)

// Noop is the cache stand-in injected into consumers when caching is
// disabled. Every Get misses, every write is discarded, and all operations
// are safe. Selecting it at construction keeps call sites free of feature
// flag branches.
type Noop struct{}

// NewNoop returns a no-op cache stand-in.
func NewNoop() *Noop {
	return &Noop{}
}

// Get always reports a miss.
func (n *Noop) Get(key string) ([]byte, bool) {
	return nil, false
}

// Set discards the value.
func (n *Noop) Set(key string, value []byte) {}

// SetWithTTL discards the value.
func (n *Noop) SetWithTTL(key string, value []byte, ttl time.Duration) {}

// Invalidate does nothing.
func (n *Noop) Invalidate(key string) {}

// Clear does nothing.
func (n *Noop) Clear() {}

// Stats returns zero counters.
func (n *Noop) Stats() types.CacheStats {
	return types.CacheStats{}
}
