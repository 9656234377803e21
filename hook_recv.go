// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

import "golang.org/x/sys/unix"

// Recv is the intercepted equivalent of unix.Read for a connected
// socket fd, kept distinct from Read to mirror original_source's
// separate recv/read wrappers.
func (e *Environment) Recv(fd int, buf []byte, flags int) (int, error) {
	if !e.hookEnabledFor() {
		return unix.Read(fd, buf)
	}
	return pollThenRetry(e, fd, EventRead, e.readTimeout(fd), func() (int, error) {
		return unix.Read(fd, buf)
	})
}

// RecvFrom is the intercepted equivalent of unix.Recvfrom.
func (e *Environment) RecvFrom(fd int, buf []byte, flags int) (int, unix.Sockaddr, error) {
	if !e.hookEnabledFor() {
		return unix.Recvfrom(fd, buf, flags)
	}

	var n int
	var from unix.Sockaddr
	_, err := pollThenRetry(e, fd, EventRead, e.readTimeout(fd), func() (int, error) {
		var attemptErr error
		n, from, attemptErr = unix.Recvfrom(fd, buf, flags)
		return n, attemptErr
	})
	return n, from, err
}
