//go:build windows

package coro

// createWakeFD returns -1, -1 on Windows: IOCP wake-up goes through
// PostQueuedCompletionStatus on the poller's own handle instead of an fd,
// so the loop goroutine skips wake-fd registration entirely on this
// platform.
func createWakeFD() (readFd, writeFd int, err error) {
	return -1, -1, nil
}

// closeWakeFD is a no-op on Windows; there is no fd to close.
func closeWakeFD(readFd, writeFd int) error {
	return nil
}
