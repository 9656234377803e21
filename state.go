package coro

import "sync/atomic"

// LoopState represents the current state of an Environment's event loop.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (3)       [EventLoop()]
//	StateRunning (3) → StateSleeping (2)    [poll() via CAS]
//	StateRunning (3) → StateTerminating (4) [Shutdown()]
//	StateSleeping (2) → StateRunning (3)    [poll() wake via CAS]
//	StateSleeping (2) → StateTerminating (4) [Shutdown()]
//	StateTerminating (4) → StateTerminated (1) [shutdown complete]
//	StateTerminated (1) → (terminal)
//
// Use TryTransition (CAS) for the reversible states (Running, Sleeping);
// use Store only for the irreversible terminal state.
type LoopState uint64

const (
	// StateAwake indicates the Environment has been created but its loop
	// has not been started.
	StateAwake LoopState = 0
	// StateTerminated indicates the loop has stopped and is fully shut down.
	StateTerminated LoopState = 1
	// StateSleeping indicates the loop is blocked in poll, waiting for
	// readiness events or a timer deadline.
	StateSleeping LoopState = 2
	// StateRunning indicates the loop is actively draining waiters.
	StateRunning LoopState = 3
	// StateTerminating indicates shutdown has been requested but the
	// drain/close sequence has not completed.
	StateTerminating LoopState = 4
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// loopState is a lock-free state machine with cache-line padding to avoid
// false sharing between the loop goroutine and the rare cross-goroutine
// callers of Shutdown/Close.
type loopState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte
}

// newLoopState creates a new state machine in the Awake state.
func newLoopState() *loopState {
	s := &loopState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *loopState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state without validating the transition.
func (s *loopState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another, returning true on success.
func (s *loopState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// CanAcceptWork returns true if the loop can still accept waiters/tasks.
func (s *loopState) CanAcceptWork() bool {
	switch s.Load() {
	case StateAwake, StateRunning, StateSleeping, StateTerminating:
		return true
	default:
		return false
	}
}
