// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

import (
	"time"

	"golang.org/x/sys/unix"
)

// connectWaitSlice and connectWaitSlices reproduce original_source's
// connect hook, which waits for a non-blocking connect in three 25-
// second slices (75s total) rather than one long wait, a quirk
// preserved for bit-compatible behavior per SPEC_FULL.md §6.
const (
	connectWaitSlice  = 25 * time.Second
	connectWaitSlices = 3
)

// Connect is the intercepted equivalent of unix.Connect. It does not
// change fd's blocking mode: the caller is expected to have created the
// socket with SOCK_NONBLOCK, matching original_source's convention of
// hooking already-non-blocking sockets. It suspends the calling
// Coroutine until the connection completes, fails, or the 75s ceiling
// elapses.
func (e *Environment) Connect(fd int, addr unix.Sockaddr) error {
	if !e.hookEnabledFor() {
		return unix.Connect(fd, addr)
	}

	err := unix.Connect(fd, addr)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS {
		return err
	}

	co := e.Current()
	for slice := 0; slice < connectWaitSlices; slice++ {
		w := &waiter{kind: waiterKindPoll, co: co, env: e, bucket: -1, fd: fd, events: EventWrite}
		if regErr := e.poll.RegisterFD(fd, EventWrite, func(fired IOEvents) {
			if w.bucket >= 0 {
				e.wheel.cancel(w)
			}
			_ = e.poll.UnregisterFD(fd)
			w.firedEvents = fired
			w.fire(false)
		}); regErr != nil {
			e.metrics.recordHookFallback()
			return regErr
		}

		e.scheduleWaiter(w, connectWaitSlice)

		if yErr := e.YieldCurrent(); yErr != nil {
			_ = e.poll.UnregisterFD(fd)
			return yErr
		}

		if w.timedOut {
			_ = e.poll.UnregisterFD(fd)
			continue
		}

		if soErr, getErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); getErr == nil {
			if soErr != 0 {
				return unix.Errno(soErr)
			}
			return nil
		}
		return nil
	}

	return unix.ETIMEDOUT
}
