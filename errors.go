package coro

import (
	"errors"
	"fmt"
)

// Standard errors surfaced by the runtime. See SPEC_FULL.md §7 for the
// error kinds these correspond to.
var (
	// ErrCallChainFull is returned by Resume when the call-chain is already
	// at the Environment's maximum depth (DefaultMaxCallChainDepth unless
	// set with WithMaxCallChainDepth); no switch occurs.
	ErrCallChainFull = errors.New("coro: call-chain depth exceeded")

	// ErrCoroutineFinished is returned when an operation targets a
	// coroutine that has already run to completion.
	ErrCoroutineFinished = errors.New("coro: coroutine already finished")

	// ErrCoroutineRunning is returned by Resume when the coroutine is
	// already running, and by Release when it is running or suspended.
	ErrCoroutineRunning = errors.New("coro: coroutine is still on a call-chain")

	// ErrWrongEnvironment is returned when a coroutine is resumed from an
	// Environment other than the one it was created against, or Resume/
	// EventLoop is called from a goroutine other than the Environment's
	// owner (or the backing goroutine of its current Coroutine).
	ErrWrongEnvironment = errors.New("coro: coroutine belongs to a different environment")

	// ErrNotOnCallChain is returned by YieldCurrent when called while no
	// coroutine is current (i.e. from the Environment's own owner
	// goroutine context, outside any Resume call).
	ErrNotOnCallChain = errors.New("coro: no coroutine is current on this environment")

	// ErrNotResettable is returned by Reset when the coroutine is neither
	// fresh nor finished.
	ErrNotResettable = errors.New("coro: coroutine is neither fresh nor finished")

	// ErrLoopAlreadyRunning is returned when EventLoop is called on an
	// Environment whose loop is already running.
	ErrLoopAlreadyRunning = errors.New("coro: event loop already running")

	// ErrLoopTerminated is returned by EventLoop when the Environment's
	// loop is shutting down or has shut down. Other Environment methods
	// do not check for termination.
	ErrLoopTerminated = errors.New("coro: event loop has been terminated")

	// ErrReentrantRun is returned when EventLoop is invoked from within a
	// Coroutine running on the same Environment.
	ErrReentrantRun = errors.New("coro: cannot call EventLoop from within the loop")

	// ErrPollerClosed is returned by poller operations after Close.
	ErrPollerClosed = errors.New("coro: poller closed")

	// ErrFDOutOfRange is returned when a file descriptor exceeds the
	// poller's supported range.
	ErrFDOutOfRange = errors.New("coro: fd out of range")

	// ErrFDAlreadyRegistered is returned by RegisterFD for a live fd.
	ErrFDAlreadyRegistered = errors.New("coro: fd already registered")

	// ErrFDNotRegistered is returned by UnregisterFD/ModifyFD for an
	// unknown fd.
	ErrFDNotRegistered = errors.New("coro: fd not registered")

	// ErrHookRegisterFailed corresponds to spec.md's poll-register-failed.
	// PollWrapper returns it when none of its fds could be registered with
	// the poller; it does not fall back to a blocking poll.
	ErrHookRegisterFailed = errors.New("coro: readiness registration rejected")

	// ErrSharedFrameBusy is returned by Resume when a Coroutine's shared
	// stack frame is still occupied by a different, unfinished Coroutine.
	ErrSharedFrameBusy = errors.New("coro: shared stack frame is occupied by another live coroutine")
)

// WrapError wraps an error with a message, preserving the cause chain for
// errors.Is/errors.As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
