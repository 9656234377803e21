// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

import "time"

// waiterKind distinguishes what a waiter is blocked on.
type waiterKind uint8

const (
	// waiterKindTimer fires purely from the timing wheel (sleep/timeout).
	waiterKindTimer waiterKind = iota
	// waiterKindPoll fires when a registered fd becomes ready, or on
	// timeout if a deadline was also set (e.g. a read with a timeout).
	waiterKindPoll
)

// waiter is the record of one coroutine's pending suspension. It is the
// payload scheduled on the timing wheel (wheel.go) and/or registered
// with the poller (poller*.go), and is the unit pushed through the
// ready queue (ingress.go) once its condition fires.
//
// This plays the role libco's co_epoll_res/PollItem pairing plays for a
// single co_poll call, generalized to also cover plain timer waits
// (co_sleep) under the one struct, since both ultimately just resume a
// parked Coroutine.
type waiter struct { // betteralign:ignore
	id     uint64
	kind   waiterKind
	co     *Coroutine
	env    *Environment
	bucket int // current wheel bucket index, -1 if not scheduled
	round  int // unused: the wheel clamps to its horizon instead of counting revolutions

	fd          int
	events      IOEvents
	firedEvents IOEvents
	registered  bool

	deadline time.Time
	timedOut bool

	prev, next *waiter // waiterList intrusive membership
}

// fire marks the waiter as ready and pushes it onto the environment's
// ready queue for dispatch on the next drain. Safe to call at most once
// per waiter; the environment clears bucket/registered state before
// fire is invoked.
func (w *waiter) fire(timedOut bool) {
	w.timedOut = timedOut
	w.env.ready.push(w)
}
