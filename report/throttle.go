package report

import (
	"sync"
	"time"
)

// Throttle lets an action run at most once per interval. The first call
// always runs unless MarkRun was called before.
type Throttle struct {
	mx       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow reports whether the action may run at now and, if so, records it.
func (t *Throttle) Allow(now time.Time) bool {
	t.mx.Lock()
	defer t.mx.Unlock()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// MarkRun records a run at now without running anything.
func (t *Throttle) MarkRun(now time.Time) {
	t.mx.Lock()
	t.last = now
	t.mx.Unlock()
}

// MaybeRun calls fn if the interval has elapsed at now. ran tells whether
// fn was called; a failing fn still counts as a run.
func (t *Throttle) MaybeRun(now time.Time, fn func() error) (ran bool, err error) {
	if !t.Allow(now) {
		return false, nil
	}
	return true, fn()
}
