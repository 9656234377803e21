// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// hook_poll.go - the intercepted equivalent of poll(2), mirroring
// original_source's co_poll (co_routine.cpp), which every other hook in
// the original is built on top of. In this package the other hooks do
// not go through PollWrapper: read/recv/write/send/sendto use
// pollThenRetry (hook.go) and Connect runs its own wait loop.
package coro

import "time"

// PollFD describes one file descriptor's interest set for PollWrapper,
// mirroring a POSIX struct pollfd.
type PollFD struct {
	FD      int
	Events  IOEvents
	Revents IOEvents
}

// PollWrapper blocks the current Coroutine until at least one of items
// is ready or timeoutMs elapses, mirroring libco's co_poll. A
// timeoutMs of 0 is not a non-blocking check: every fd is still
// registered and the Coroutine is suspended until readiness or the next
// wheel tick. A negative timeoutMs waits up to the wheel's horizon (see
// SPEC_FULL.md §9 item 2). It must be called from within a Coroutine's
// entry function.
func (e *Environment) PollWrapper(items []PollFD, timeoutMs int) (int, error) {
	co := e.Current()
	if co == nil {
		return 0, ErrNotOnCallChain
	}
	if len(items) == 0 {
		return 0, nil
	}

	delay := time.Duration(timeoutMs) * time.Millisecond
	if timeoutMs < 0 {
		delay = e.wheel.horizon()
	}

	// Group items by fd before registering: the poller rejects a second
	// RegisterFD call for an fd already registered (ErrFDAlreadyRegistered),
	// so two items sharing an fd would otherwise silently lose whichever
	// one loses the race to register first. One registration per unique
	// fd, OR-ing every sharer's requested events together, then fanning
	// the fired events back out to every item sharing that fd on return,
	// reproduces what a single real poll(2) call does for duplicate fds.
	order := make([]int, 0, len(items))
	byFD := make(map[int][]int, len(items))
	for i := range items {
		fd := items[i].FD
		if _, seen := byFD[fd]; !seen {
			order = append(order, fd)
		}
		byFD[fd] = append(byFD[fd], i)
	}

	w := &waiter{kind: waiterKindPoll, co: co, env: e, bucket: -1}
	registered := make([]int, 0, len(order))

	for _, fd := range order {
		fd := fd
		idxs := byFD[fd]
		var want IOEvents
		for _, i := range idxs {
			want |= items[i].Events
		}
		if err := e.poll.RegisterFD(fd, want, func(fired IOEvents) {
			for _, i := range idxs {
				items[i].Revents |= fired & items[i].Events
			}
			if w.bucket >= 0 {
				e.wheel.cancel(w)
			}
			for _, rfd := range registered {
				_ = e.poll.UnregisterFD(rfd)
			}
			w.fire(false)
		}); err == nil {
			registered = append(registered, fd)
		}
	}

	if len(registered) == 0 {
		return 0, ErrHookRegisterFailed
	}

	e.scheduleWaiter(w, delay)

	if err := e.YieldCurrent(); err != nil {
		for _, rfd := range registered {
			_ = e.poll.UnregisterFD(rfd)
		}
		return 0, err
	}

	if w.timedOut {
		for _, rfd := range registered {
			_ = e.poll.UnregisterFD(rfd)
		}
	}

	ready := 0
	for i := range items {
		if items[i].Revents != 0 {
			ready++
		}
	}
	return ready, nil
}

// Sleep suspends the current Coroutine for at least d, mirroring
// libco's msleep-over-co_poll idiom (a co_poll call with no fds, purely
// for the timeout side effect).
func (e *Environment) Sleep(d time.Duration) error {
	co := e.Current()
	if co == nil {
		return ErrNotOnCallChain
	}
	w := &waiter{kind: waiterKindTimer, co: co, env: e, bucket: -1}
	e.scheduleWaiter(w, d)
	return e.YieldCurrent()
}
