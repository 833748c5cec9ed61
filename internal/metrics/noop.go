package metrics

import (
	"time"

	"github.com/perfcore/perfcore/pkg/types"
)

// Noop is the monitor stand-in injected into consumers when performance
// monitoring is disabled. Records are discarded and snapshots are
// zero-valued.
type Noop struct{}

// NewNoop returns a no-op performance monitor.
func NewNoop() *Noop {
	return &Noop{}
}

// Record discards the sample.
func (n *Noop) Record(operation string, duration time.Duration, bytes int64, success bool) {}

// CurrentSystemMetrics returns an empty snapshot.
func (n *Noop) CurrentSystemMetrics() types.SystemMetrics {
	return types.SystemMetrics{Timestamp: time.Now()}
}

// Reset does nothing.
func (n *Noop) Reset() {}
