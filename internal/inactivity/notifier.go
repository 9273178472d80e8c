// Package inactivity provides the resettable countdown timers that close
// activity intervals when no keep-alive trigger renews them in time.
package inactivity

import (
	"sync"
	"time"
)

// Timeout is invoked when a countdown elapses, or synchronously by Cancel
// with a forced timestamp. It must tolerate being called for an interval
// that is already closed.
type Timeout func(at time.Time)

// Notifier is a per-activity-dimension countdown. Trigger (re)starts the
// countdown; if it elapses without another trigger the Timeout fires exactly
// once and the notifier goes idle until the next Trigger. A timer that fires
// after it was canceled or re-triggered is a silent no-op, guarded by a
// generation counter.
type Notifier struct {
	mu      sync.Mutex
	window  time.Duration
	timeout Timeout
	timer   *time.Timer
	gen     uint64
}

// New creates a Notifier firing timeout after window of inactivity.
func New(window time.Duration, timeout Timeout) *Notifier {
	return &Notifier{window: window, timeout: timeout}
}

// Trigger resets the countdown from now.
func (n *Notifier) Trigger() {
	n.TriggerAt(time.Now())
}

// TriggerAt resets the countdown, recording at as the most recent activity.
// The timeout, if it fires, fires window after at.
func (n *Notifier) TriggerAt(at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	gen := n.gen
	if n.timer != nil {
		n.timer.Stop()
	}

	delay := n.window - time.Since(at)
	if delay < 0 {
		delay = 0
	}
	n.timer = time.AfterFunc(delay, func() {
		n.fire(gen)
	})
}

// Cancel stops any pending countdown and synchronously performs the closing
// action as if the timeout fired at the forced timestamp. Used when an
// authoritative close event arrives before the countdown would have elapsed,
// so the recorded end time matches the true event time.
func (n *Notifier) Cancel(at time.Time) {
	n.mu.Lock()
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	n.timeout(at)
}

// Stop silently discards any pending countdown without firing.
func (n *Notifier) Stop() {
	n.mu.Lock()
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()
}

// fire runs the timeout unless the countdown was canceled or re-triggered
// after this timer was armed.
func (n *Notifier) fire(gen uint64) {
	n.mu.Lock()
	stale := gen != n.gen
	if !stale {
		n.timer = nil
	}
	n.mu.Unlock()
	if stale {
		return
	}
	n.timeout(time.Now())
}
