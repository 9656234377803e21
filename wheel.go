// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// wheel.go - a hashed timing wheel for scheduling waiter timeouts.
//
// This is the Go-native counterpart of libco's co_epoll 60,000-slot
// timeout ring (co_epoll.cpp's stCoEpoll_t.pTimeout): a fixed-size ring
// of buckets, one per tick, advanced on each Environment tick by the
// number of tick intervals that have elapsed since the last advance.
// A waiter due more than one full revolution away is clamped to the
// wheel's horizon rather than wrapped — see SPEC_FULL.md §9 for why the
// original's clamp-don't-wrap behavior is preserved rather than adding
// a round-counting multi-revolution wheel: callers that need longer
// timeouts re-arm after the loop's horizon notifies them, exactly as
// the original required.
package coro

import "time"

// wheel is a ring of waiterList buckets advanced one slot per tick.
type wheel struct {
	buckets []waiterList
	cursor  int
	tick    time.Duration
}

// newWheel creates a wheel with the given bucket count and tick
// granularity.
func newWheel(buckets int, tick time.Duration) *wheel {
	return &wheel{
		buckets: make([]waiterList, buckets),
		tick:    tick,
	}
}

// horizon is the maximum delay the wheel can represent without
// clamping.
func (w *wheel) horizon() time.Duration {
	return time.Duration(len(w.buckets)-1) * w.tick
}

// insert schedules w to fire after delay, clamping to the wheel's
// horizon if delay exceeds it.
func (w *wheel) insert(wt *waiter, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	if delay > w.horizon() {
		delay = w.horizon()
	}
	slots := int(delay / w.tick)
	if slots < 1 {
		// advance() moves the cursor before draining, so a waiter placed
		// in the current bucket would be skipped for a full revolution;
		// the soonest a waiter can actually fire is the next tick.
		slots = 1
	}
	idx := (w.cursor + slots) % len(w.buckets)
	wt.bucket = idx
	w.buckets[idx].pushBack(wt)
}

// cancel removes wt from its bucket. No-op if wt is not currently
// scheduled (bucket < 0).
func (w *wheel) cancel(wt *waiter) {
	if wt.bucket < 0 {
		return
	}
	w.buckets[wt.bucket].remove(wt)
	wt.bucket = -1
}

// advance moves the cursor forward by n ticks' worth of buckets and
// returns every waiter due along the way. n is the caller's measured
// elapsed-time/tick count (see Environment.tick), not a fixed one-tick
// step: drifting the cursor by wall-clock time rather than by one
// bucket per call is what keeps a waiter from firing before its actual
// deadline when tick() is called back-to-back under load (spec.md §4.4
// step 3; original_source's TakeAllTimeout catches up the same way via
// GetTickMS()-measured elapsed slots). n <= 0 is a no-op: less than one
// tick's worth of real time has passed, so nothing is due yet. n is
// capped to the number of buckets: once a full revolution has been
// walked, continuing would only revisit buckets already drained as
// empty.
func (w *wheel) advance(n int) []*waiter {
	if n <= 0 {
		return nil
	}
	if n > len(w.buckets) {
		n = len(w.buckets)
	}
	var due []*waiter
	for i := 0; i < n; i++ {
		w.cursor = (w.cursor + 1) % len(w.buckets)
		fired := w.buckets[w.cursor].drain()
		for _, wt := range fired {
			wt.bucket = -1
		}
		due = append(due, fired...)
	}
	return due
}
