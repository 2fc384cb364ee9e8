// Package broadcast holds rate-limiting for fan-out pushes. The user
// list is the only push large and frequent enough to need gating; game
// list broadcasts are event-driven and stay unthrottled.
package broadcast

import (
	"sync"
	"time"

	"github.com/jwren/castellan/internal/dependencies/clock"
)

// DefaultUserListInterval is the minimum gap between full user-list
// broadcasts
const DefaultUserListInterval = time.Minute

// Throttle gates an action to at most once per interval. The first call
// always passes. Suppressed calls are dropped, not queued; the next
// allowed broadcast carries the current state anyway.
type Throttle struct {
	clock    clock.Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewThrottle creates a Throttle with the given minimum interval
func NewThrottle(clock clock.Clock, interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultUserListInterval
	}
	return &Throttle{clock: clock, interval: interval}
}

// Allow reports whether the action may run now, and if so marks it run.
// Sends to a single connection (login, reconnect) bypass the throttle
// entirely and never call this.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset clears the throttle so the next Allow passes
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
}
