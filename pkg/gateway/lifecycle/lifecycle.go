// Package lifecycle holds the process state the readiness probe reports.
package lifecycle

import "sync/atomic"

// Lifecycle flips to draining during graceful shutdown so load balancers
// stop routing new work while in-flight requests finish.
type Lifecycle struct {
	draining atomic.Bool
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}
