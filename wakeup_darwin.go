//go:build darwin

package coro

import (
	"syscall"
)

// createWakeFD creates a self-pipe used to break the loop goroutine out of
// PollIO when a waiter is readied from another coroutine's backing
// goroutine.
func createWakeFD() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}

	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return -1, -1, err
	}

	return fds[0], fds[1], nil
}

// closeWakeFD closes both ends of the wake pipe.
func closeWakeFD(readFd, writeFd int) error {
	if readFd >= 0 {
		_ = syscall.Close(readFd)
	}
	if writeFd >= 0 && writeFd != readFd {
		_ = syscall.Close(writeFd)
	}
	return nil
}
