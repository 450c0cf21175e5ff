// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that scheduled
// behavior — refresh ticks and multipart append timeouts — can be
// driven deterministically from tests instead
// of racing against the wall clock.
//
// Production code takes a Clock parameter instead of calling time.Now,
// time.After, time.NewTicker, time.AfterFunc, or time.Sleep directly.
// Real() wires up the standard library behavior; Fake() returns a
// clock frozen at a fixed instant that only moves when Advance is
// called.
//
// # Wiring Pattern
//
// Give the struct a Clock field:
//
//	type Core struct {
//	    clk clock.Clock
//	    // ...
//	}
//
// In production:
//
//	c := &Core{clk: clock.Real()}
//
// In tests:
//
//	fc := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c := &Core{clk: fc}
//	// ... start the goroutine under test ...
//	fc.WaitForTimers(1)        // wait for it to register a timer
//	fc.Advance(5 * time.Second) // fire that timer deterministically
//
// # FakeClock Synchronization
//
// Calling Sleep, After, NewTicker, or AfterFunc on a FakeClock just
// registers a pending event; nothing fires until Advance walks past
// its deadline. WaitForTimers blocks until a given number of events
// are registered, which avoids the race between a goroutine arming a
// timer and the test advancing time before that registration lands.
package clock
