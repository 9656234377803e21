// Package coro provides a stackful, asymmetric, single-threaded
// user-space coroutine runtime.
//
// # I/O Registration
//
// The event loop supports registering file descriptors for I/O events
// using platform-native readiness mechanisms:
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//
// See poller_linux.go and poller_darwin.go for platform-specific
// implementations. Application code does not call these directly; they
// back the blocking-I/O interception hooks (hook_*.go).
//
// # Safety
//
// Always call UnregisterFD before closing a file descriptor to prevent
// stale event delivery due to FD recycling.
package coro

// Note: RegisterFD, UnregisterFD, ModifyFD, and PollIO are implemented
// in platform-specific files:
//   - poller_linux.go (epoll)
//   - poller_darwin.go (kqueue)
