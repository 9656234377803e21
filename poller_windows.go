//go:build windows

package coro

import (
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/windows"
)

// maxFDs is the initial size of the dynamic fds slice.
const maxFDs = 65536

// MaxFDLimit is the largest fd value accepted for dynamic growth.
const MaxFDLimit = 100000000

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// IOCallback is invoked by the poller when a registered fd becomes ready.
type IOCallback func(IOEvents)

// fdInfo stores per-FD callback information.
type fdInfo struct {
	callback IOCallback
	events   IOEvents
	active   bool
}

// FastPoller manages I/O event registration using an IO completion port.
//
// This is the inert half of the Unix-targeted runtime described by
// SPEC_FULL.md; blocking-syscall interception is not provided on this
// platform (see DESIGN.md's platform-scope note), and the package as a
// whole does not build under GOOS=windows because the hook files import
// golang.org/x/sys/unix without a build constraint. PollIO here reports
// wake-ups only; it does not attempt to demultiplex which registered
// fd actually became ready, since no hook_*.go file dispatches through
// this path on Windows.
type FastPoller struct { // betteralign:ignore
	_        [64]byte
	iocp     windows.Handle
	_        [56]byte
	wakeSock windows.Socket
	fds      []fdInfo
	fdMu     sync.RWMutex
	closed   atomic.Bool
}

// Init initializes the completion port and its wake-up socket.
func (p *FastPoller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}

	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return err
	}
	p.iocp = iocp

	wakeSock, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		_ = windows.CloseHandle(iocp)
		return err
	}
	p.wakeSock = wakeSock

	if _, err := windows.CreateIoCompletionPort(wakeSock, iocp, 0, 0); err != nil {
		_ = windows.Closesocket(wakeSock)
		_ = windows.CloseHandle(iocp)
		return err
	}

	p.fds = make([]fdInfo, maxFDs)
	return nil
}

// Close closes the completion port and wake-up socket.
func (p *FastPoller) Close() error {
	p.closed.Store(true)
	if p.iocp != 0 {
		_ = windows.CloseHandle(p.iocp)
	}
	if p.wakeSock != windows.InvalidHandle {
		_ = windows.Closesocket(p.wakeSock)
	}
	return nil
}

// RegisterFD associates a handle with the completion port.
func (p *FastPoller) RegisterFD(fd int, events IOEvents, cb IOCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= MaxFDLimit {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) {
		newSize := fd*2 + 1
		if newSize > MaxFDLimit {
			newSize = MaxFDLimit + 1
		}
		newFds := make([]fdInfo, newSize)
		copy(newFds, p.fds)
		p.fds = newFds
	}

	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}

	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	p.fdMu.Unlock()

	if _, err := windows.CreateIoCompletionPort(windows.Handle(fd), p.iocp, 0, 0); err != nil {
		p.fdMu.Lock()
		p.fds[fd] = fdInfo{}
		p.fdMu.Unlock()
		return err
	}
	return nil
}

// UnregisterFD removes a handle's tracking entry. The completion port
// association itself is torn down implicitly when the handle closes;
// there is no explicit disassociation API on this platform.
func (p *FastPoller) UnregisterFD(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	p.fds[fd] = fdInfo{}
	p.fdMu.Unlock()
	return nil
}

// ModifyFD updates the events tracked for fd. Actual readiness on this
// platform is driven by the overlapped I/O calls the caller posts
// (WSASend/WSARecv), not by re-arming here.
func (p *FastPoller) ModifyFD(fd int, events IOEvents) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	p.fds[fd].events = events
	p.fdMu.Unlock()
	return nil
}

// PollIO blocks on the completion port until a packet arrives or
// timeoutMs elapses.
func (p *FastPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	var timeout *uint32
	if timeoutMs >= 0 {
		t := uint32(timeoutMs)
		timeout = &t
	}

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(p.iocp, &bytes, &key, &overlapped, timeout)
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			if errno == windows.WAIT_TIMEOUT {
				return 0, nil
			}
			if errno == windows.ERROR_ABANDONED_WAIT_0 || errno == windows.ERROR_INVALID_HANDLE {
				return 0, ErrPollerClosed
			}
		}
		return 0, err
	}

	if overlapped == nil {
		// A Wakeup() call, not real I/O completion.
		return 0, nil
	}
	return 1, nil
}

// Wakeup unblocks a PollIO call from another thread.
func (p *FastPoller) Wakeup() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	return windows.PostQueuedCompletionStatus(p.iocp, 0, 0, nil)
}
