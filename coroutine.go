// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

import "sync/atomic"

// CoroutineState is the lifecycle state of a Coroutine.
type CoroutineState uint32

const (
	// CoroutineFresh is the state of a Coroutine that has never been
	// resumed; its backing goroutine has not started yet.
	CoroutineFresh CoroutineState = iota
	// CoroutineSuspended is the state of a Coroutine parked at a
	// YieldCurrent call.
	CoroutineSuspended
	// CoroutineRunning is the state of a Coroutine currently executing
	// on its backing goroutine, i.e. on the call-chain.
	CoroutineRunning
	// CoroutineFinished is the state of a Coroutine whose entry function
	// has returned or panicked.
	CoroutineFinished
)

// String returns a human-readable name for the state.
func (s CoroutineState) String() string {
	switch s {
	case CoroutineFresh:
		return "Fresh"
	case CoroutineSuspended:
		return "Suspended"
	case CoroutineRunning:
		return "Running"
	case CoroutineFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Func is a Coroutine's entry point. It receives the Coroutine it is
// running as, so it can call co.Yield() without a package-level
// "current coroutine" lookup.
type Func func(co *Coroutine)

var coroutineIDCounter atomic.Uint64

// Coroutine is one stackful-style unit of cooperative execution. It is
// created against exactly one Environment and must only ever be resumed
// from that Environment's owner goroutine or from a Coroutine currently
// running on it (spec.md §5); crossing that boundary returns
// ErrWrongEnvironment rather than corrupting state.
type Coroutine struct { // betteralign:ignore
	id  uint64
	env *Environment
	fn  Func

	state atomic.Uint32

	started            bool
	isMain             bool
	syscallHookEnabled bool

	// backingGoroutineID is the runtime goroutine ID of this Coroutine's
	// dedicated backing goroutine, recorded once when it first starts.
	// While this Coroutine is the one active on the call chain (it is
	// the only goroutine the switchPoint protocol has unblocked), calls
	// it makes back into the Environment legitimately originate from
	// this goroutine rather than the Environment's original owner
	// goroutine; see (*Environment).isOwner.
	backingGoroutineID uint64

	sw *switchPoint

	stackAttr   StackAttr
	sharedFrame *StackFrame

	locals map[any]any

	// panicValue carries a panic raised inside fn across the switch back
	// to the resumer, which returns it from Resume as an error rather
	// than swallowing it.
	panicValue any

	// parent is the Coroutine active on the call-chain at the moment
	// this one was resumed, restored as current when this one yields or
	// finishes. Nil when resumed directly from the Environment's owner
	// goroutine (the synthetic "main" context).
	parent *Coroutine
}

// loadState is a small helper over the atomic state field.
func (c *Coroutine) loadState() CoroutineState {
	return CoroutineState(c.state.Load())
}

func (c *Coroutine) storeState(s CoroutineState) {
	c.state.Store(uint32(s))
}

// ID returns the Coroutine's Environment-scoped identifier.
func (c *Coroutine) ID() uint64 { return c.id }

// State returns the current lifecycle state.
func (c *Coroutine) State() CoroutineState { return c.loadState() }

// IsMain reports whether this Coroutine is the Environment's synthetic
// main coroutine (the owner goroutine's own context, never backed by a
// dedicated goroutine).
func (c *Coroutine) IsMain() bool { return c.isMain }

// SetLocal stores a coroutine-local value under key, creating the
// backing map lazily. This is the minimal coroutine-local-variable
// collaborator named out of core scope in SPEC_FULL.md §1; it exists
// only so callers and tests have somewhere to stash per-coroutine state
// without a global map keyed by Coroutine pointer. The hooks do not
// read it (their timeouts are per-fd, see SetReadTimeout).
func (c *Coroutine) SetLocal(key, value any) {
	if c.locals == nil {
		c.locals = make(map[any]any)
	}
	c.locals[key] = value
}

// Local retrieves a coroutine-local value previously set with SetLocal.
func (c *Coroutine) Local(key any) (any, bool) {
	if c.locals == nil {
		return nil, false
	}
	v, ok := c.locals[key]
	return v, ok
}

// Yield suspends this Coroutine, handing control back to whichever
// goroutine last resumed it, and blocks until it is resumed again. It
// must only be called from within the Coroutine's own entry function.
func (c *Coroutine) Yield() {
	c.storeState(CoroutineSuspended)
	c.sw.switchOut()
	c.sw.awaitResume()
	c.storeState(CoroutineRunning)
}

// run is the body executed on the Coroutine's backing goroutine. It
// blocks until first resumed, then runs fn to completion (recovering
// any panic so the resumer can return it as an error), then signals
// finished and exits for good — a fresh Resume on a CoroutineFinished
// Coroutine is rejected, matching spec.md's one-shot lifecycle unless
// Reset is called.
func (c *Coroutine) run() {
	c.sw.awaitResume()
	c.backingGoroutineID = getGoroutineID()
	c.storeState(CoroutineRunning)

	func() {
		defer func() {
			if r := recover(); r != nil {
				c.panicValue = r
			}
		}()
		c.fn(c)
	}()

	c.storeState(CoroutineFinished)
	c.sw.switchOut()
}
