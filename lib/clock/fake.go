// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Nothing it schedules
// fires until Advance moves time forward past the relevant deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fc := &FakeClock{now: initial}
	fc.changed = sync.NewCond(&fc.mu)
	return fc
}

// FakeClock is a Clock a test drives by hand: Now never moves on its
// own, and every After/AfterFunc/NewTicker/Sleep call just registers a
// pending event that Advance resolves deterministically.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order. Don't call Sleep or Advance from inside one — that deadlocks
// against the mutex Advance is already holding conceptually (it isn't
// reentrant).
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	events  []*pendingEvent
	changed *sync.Cond
}

// pendingEvent is one scheduled After/AfterFunc/Sleep/ticker wait.
type pendingEvent struct {
	deadline time.Time

	// deliver receives the fire time for After/Sleep/ticker events.
	// nil for AfterFunc events, which use callback instead.
	deliver chan time.Time

	// callback runs synchronously during Advance for AfterFunc
	// events. nil otherwise.
	callback func()

	// period is non-zero for ticker events; the event reschedules
	// itself deadline+period after each fire instead of retiring.
	period time.Duration

	canceled bool
	fired    bool
}

// Now returns the frozen current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel delivering once duration d has elapsed. A
// non-positive d delivers immediately without registering an event.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}

	c.scheduleLocked(&pendingEvent{deadline: c.now.Add(d), deliver: ch})
	return ch
}

// AfterFunc schedules f to run after duration d. The Timer's C is
// always nil. A non-positive d runs f synchronously before AfterFunc
// returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.mu.Unlock()
		f()
		c.mu.Lock()
		return &Timer{
			cancel: func() bool { return false },
			extend: func(time.Duration) bool { return false },
		}
	}

	ev := &pendingEvent{deadline: c.now.Add(d), callback: f}
	c.scheduleLocked(ev)

	return &Timer{
		cancel: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if ev.canceled || ev.fired {
				return false
			}
			ev.canceled = true
			return true
		},
		extend: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasPending := !ev.canceled && !ev.fired
			ev.canceled = false
			ev.fired = false
			ev.deadline = c.now.Add(d)
			if !wasPending {
				c.scheduleLocked(ev)
			}
			return wasPending
		},
	}
}

// NewTicker returns a Ticker firing on interval d. Panics if d is
// non-positive.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ev := &pendingEvent{deadline: c.now.Add(d), deliver: ch, period: d}
	c.scheduleLocked(ev)

	return &Ticker{
		C: ch,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ev.canceled = true
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			ev.period = d
			ev.deadline = c.now.Add(d)
			ev.canceled = false
		},
	}
}

// Sleep blocks until the clock advances past deadline d. A
// non-positive d returns immediately.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d and resolves every event whose
// deadline now lies at or before the new time, firing in deadline
// order.
//
// AfterFunc callbacks run in the caller's goroutine. Channel sends for
// After/Sleep/ticker events never block (a full buffer just drops the
// tick, matching time.Ticker). A ticker spanning several of its own
// intervals within one Advance call fires once per interval crossed.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}

		sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })

		for _, ev := range due {
			switch {
			case ev.callback != nil:
				ev.callback()
			case ev.deliver != nil:
				select {
				case ev.deliver <- target:
				default:
				}
			}
		}
	}
}

// takeDue removes every due, non-canceled event from the pending list,
// reschedules ticker events for their next interval, and returns what
// fired.
func (c *FakeClock) takeDue(target time.Time) []*pendingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, rest []*pendingEvent
	for _, ev := range c.events {
		if ev.canceled {
			continue
		}
		if ev.deadline.After(target) {
			rest = append(rest, ev)
			continue
		}
		due = append(due, ev)
	}

	for _, ev := range due {
		if ev.period > 0 {
			ev.deadline = ev.deadline.Add(ev.period)
			rest = append(rest, ev)
		} else {
			ev.fired = true
		}
	}

	c.events = rest
	return due
}

// scheduleLocked adds ev to the pending list and wakes any
// WaitForTimers waiters. Must be called with c.mu held.
func (c *FakeClock) scheduleLocked(ev *pendingEvent) {
	c.events = append(c.events, ev)
	c.changed.Broadcast()
}

// WaitForTimers blocks until at least n events (timers, tickers, or
// sleeps) are pending. Use this before Advance to eliminate the race
// between a goroutine registering a wait and the test resolving it:
//
//	go func() { fc.Sleep(5 * time.Second) }()
//	fc.WaitForTimers(1)
//	fc.Advance(5 * time.Second)
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeCountLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount reports how many events are currently active (neither
// canceled nor already fired).
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeCountLocked()
}

func (c *FakeClock) activeCountLocked() int {
	n := 0
	for _, ev := range c.events {
		if !ev.canceled {
			n++
		}
	}
	return n
}
