// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source every component with a schedule — the
// refresh loop and the append-timeout timers — depends on instead of
// calling the time package directly. Production wiring
// passes Real(); tests pass Fake() and drive time forward by hand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc runs f after duration d elapses, on its own goroutine
	// for the real clock (synchronously, inside Advance, for the
	// fake one). The returned Timer's C field is always nil, matching
	// time.AfterFunc. A non-positive d runs f right away.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker returns a Ticker delivering ticks on its C channel at
	// the given interval. Panics if d is non-positive.
	NewTicker(d time.Duration) *Ticker

	// Sleep blocks the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Ticker delivers periodic ticks on C until Stop is called. C has
// capacity 1; a tick is dropped rather than queued if the consumer
// hasn't drained the previous one.
type Ticker struct {
	C <-chan time.Time

	stop  func()
	reset func(time.Duration)
}

// Stop disables future ticks. It does not close C.
func (t *Ticker) Stop() { t.stop() }

// Reset restarts the tick cycle at a new interval.
func (t *Ticker) Reset(d time.Duration) { t.reset(d) }

// Timer represents a single scheduled callback or channel delivery.
// Only timers created via AfterFunc are returned to callers; C is nil
// on those (the fire is observed through the callback, not a channel).
type Timer struct {
	C <-chan time.Time

	cancel func() bool
	extend func(time.Duration) bool
}

// Stop cancels a pending fire. It reports whether the cancellation
// actually prevented a call — false if the timer already fired or was
// already stopped.
func (t *Timer) Stop() bool { return t.cancel() }

// Reset reschedules the timer to fire after duration d, reporting
// whether it was still pending beforehand.
func (t *Timer) Reset(d time.Duration) bool { return t.extend(d) }
