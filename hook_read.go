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

// DefaultReadTimeout is applied to Read when the fd has no per-fd
// override configured (see SetReadTimeout).
const DefaultReadTimeout = time.Second

// SetReadTimeout overrides the read timeout used for fd, per
// original_source's per-fd timeout fields.
func (e *Environment) SetReadTimeout(fd int, d time.Duration) {
	e.fds.getOrCreate(fd).readTimeout = d
}

func (e *Environment) readTimeout(fd int) time.Duration {
	if bk := e.fds.get(fd); bk != nil && bk.readTimeout > 0 {
		return bk.readTimeout
	}
	return DefaultReadTimeout
}

// Read is the intercepted equivalent of unix.Read: if the fd has no
// data available, the calling Coroutine suspends until it does (or the
// read timeout elapses) rather than blocking the OS thread, mirroring
// original_source's read hook in co_hook_sys_call.cpp. With syscall
// interception disabled (see DisableSyscallInterception) it degrades to
// a plain blocking unix.Read.
func (e *Environment) Read(fd int, buf []byte) (int, error) {
	if !e.hookEnabledFor() {
		return unix.Read(fd, buf)
	}
	return pollThenRetry(e, fd, EventRead, e.readTimeout(fd), func() (int, error) {
		return unix.Read(fd, buf)
	})
}

// hookEnabledFor reports whether the current Coroutine (if any) has
// syscall interception enabled. Outside any Coroutine, hooks never
// apply (there is nothing to suspend).
func (e *Environment) hookEnabledFor() bool {
	co := e.Current()
	if co == nil {
		return false
	}
	return co.syscallHookEnabled
}
