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

// DefaultWriteTimeout is applied to Write when the fd has no per-fd
// override configured (see SetWriteTimeout).
const DefaultWriteTimeout = time.Second

// SetWriteTimeout overrides the write timeout used for fd.
func (e *Environment) SetWriteTimeout(fd int, d time.Duration) {
	e.fds.getOrCreate(fd).writeTimeout = d
}

func (e *Environment) writeTimeout(fd int) time.Duration {
	if bk := e.fds.get(fd); bk != nil && bk.writeTimeout > 0 {
		return bk.writeTimeout
	}
	return DefaultWriteTimeout
}

// Write is the intercepted equivalent of unix.Write.
func (e *Environment) Write(fd int, buf []byte) (int, error) {
	if !e.hookEnabledFor() {
		return unix.Write(fd, buf)
	}
	return writeAll(e, fd, buf, func(b []byte) (int, error) {
		return unix.Write(fd, b)
	})
}

// Send is the intercepted equivalent of unix.Write for a connected
// socket fd, kept as a distinct entry point to mirror
// original_source's separate send/write wrappers even though this
// runtime's retry shape is identical for both.
func (e *Environment) Send(fd int, buf []byte, flags int) (int, error) {
	if !e.hookEnabledFor() {
		return unix.Write(fd, buf)
	}
	return writeAll(e, fd, buf, func(b []byte) (int, error) {
		return unix.Write(fd, b)
	})
}

// writeAll drives pollThenRetry across however many syscalls it takes
// to flush buf in full. A single pollThenRetry attempt only guarantees
// one successful write syscall, and a stream fd (unlike a datagram
// sendto) is free to accept fewer bytes than requested and still
// report success (a "genuine short write"); original_source's write()
// in co_hook_sys_call.cpp handles exactly this by accumulating
// wrotelen across repeated write()+poll() calls until the buffer is
// exhausted, which is what this loop reproduces.
func writeAll(e *Environment, fd int, buf []byte, write func([]byte) (int, error)) (int, error) {
	var total int
	for total < len(buf) {
		n, err := pollThenRetry(e, fd, EventWrite, e.writeTimeout(fd), func() (int, error) {
			return write(buf[total:])
		})
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, unix.EIO
		}
	}
	return total, nil
}

// SendTo is the intercepted equivalent of unix.Sendto.
func (e *Environment) SendTo(fd int, buf []byte, flags int, to unix.Sockaddr) error {
	if !e.hookEnabledFor() {
		return unix.Sendto(fd, buf, flags, to)
	}
	_, err := pollThenRetry(e, fd, EventWrite, e.writeTimeout(fd), func() (int, error) {
		return 0, unix.Sendto(fd, buf, flags, to)
	})
	return err
}
