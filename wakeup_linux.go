//go:build linux

package coro

import (
	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.EFD_CLOEXEC
	efdNonblock = unix.EFD_NONBLOCK
)

// createWakeFD creates an eventfd used to break the loop goroutine out of
// PollIO when a waiter is readied from another coroutine's backing
// goroutine. The same fd serves as both read and write end.
func createWakeFD() (readFd, writeFd int, err error) {
	fd, err := unix.Eventfd(0, efdCloexec|efdNonblock)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

// closeWakeFD closes the wake eventfd.
func closeWakeFD(readFd, writeFd int) error {
	if readFd >= 0 {
		return unix.Close(readFd)
	}
	return nil
}
