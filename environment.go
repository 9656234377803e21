// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// environment.go - the per-OS-thread scheduling context: call-chain
// bookkeeping, Coroutine creation/resume/release, and ownership
// enforcement.
//
// Grounded on original_source's co_routine.cpp (stCoRoutineEnv_t / the
// co_create/co_resume/co_yield_ct/co_release/co_reset family) for
// lifecycle semantics, and on the teacher's isLoopThread/
// loopGoroutineID pattern (loop.go) for the owner-goroutine check that
// turns spec.md §5's "cross-thread access is undefined behavior" into
// an explicit, memory-safe error.
package coro

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

var environmentIDCounter atomic.Uint64

// Environment is a single-threaded coroutine scheduling context: one
// Environment is owned by exactly one goroutine for its entire
// lifetime, and every Coroutine it creates may only ever be resumed
// from that goroutine (spec.md §5).
type Environment struct { // betteralign:ignore
	id uint64

	ownerGoroutineID atomic.Uint64

	opts *environmentOptions

	current        *Coroutine
	callChainDepth int

	wheel      *wheel
	poll       FastPoller
	ready      *readyQueue
	lastTickAt time.Time

	wakeReadFD  int
	wakeWriteFD int

	state   *loopState
	metrics *Metrics

	fds *fdTable

	syscallHookEnabled atomic.Bool

	mainCo *Coroutine
}

// NewEnvironment constructs an Environment. The returned value is not
// yet bound to any goroutine; ownership is claimed on the first call to
// EventLoop, Resume, or Create.
func NewEnvironment(opts ...Option) (*Environment, error) {
	cfg := resolveEnvironmentOptions(opts)

	e := &Environment{
		id:         environmentIDCounter.Add(1),
		opts:       cfg,
		wheel:      newWheel(cfg.wheelBuckets, cfg.tick),
		ready:      newReadyQueue(),
		state:      newLoopState(),
		metrics:    &Metrics{},
		fds:        newFDTable(),
		lastTickAt: time.Now(),
	}
	e.syscallHookEnabled.Store(true)

	if err := e.poll.Init(); err != nil {
		return nil, WrapError("coro: poller init failed", err)
	}

	readFD, writeFD, err := createWakeFD()
	if err != nil {
		_ = e.poll.Close()
		return nil, WrapError("coro: wake fd init failed", err)
	}
	e.wakeReadFD, e.wakeWriteFD = readFD, writeFD
	if readFD >= 0 {
		if err := e.poll.RegisterFD(readFD, EventRead, e.drainWake); err != nil {
			_ = e.poll.Close()
			_ = closeWakeFD(readFD, writeFD)
			return nil, WrapError("coro: wake fd register failed", err)
		}
	}

	e.mainCo = &Coroutine{
		id:     0,
		env:    e,
		isMain: true,
	}
	e.mainCo.storeState(CoroutineRunning)
	e.current = e.mainCo

	return e, nil
}

// claimOwner binds the Environment to the calling goroutine the first
// time any entry point is used, exactly as the teacher's loop does on
// Run() entry.
func (e *Environment) claimOwner() {
	e.ownerGoroutineID.CompareAndSwap(0, getGoroutineID())
}

// isOwner reports whether the calling goroutine is legitimately allowed
// to act on this Environment right now: either the original owner
// goroutine, or — when a Coroutine is currently active on the call
// chain — that Coroutine's own backing goroutine. The latter case is
// what makes nested Resume calls (a Coroutine resuming another
// Coroutine) work: that call physically executes on the parent
// Coroutine's dedicated backing goroutine, not the Environment's
// original owner goroutine, even though exactly one goroutine is ever
// unblocked at a time by the switchPoint handoff protocol. A caller
// that is neither is a genuinely unrelated goroutine racing the
// Environment's single-threaded invariant, and is rejected.
func (e *Environment) isOwner() bool {
	owner := e.ownerGoroutineID.Load()
	if owner == 0 {
		return false
	}
	callerID := getGoroutineID()
	if owner == callerID {
		return true
	}
	if cur := e.current; cur != nil && cur != e.mainCo {
		return cur.backingGoroutineID == callerID
	}
	return false
}

// Current returns the Coroutine currently on the call-chain, or nil if
// called from the Environment's owner goroutine outside any Resume.
func (e *Environment) Current() *Coroutine {
	if e.current == e.mainCo {
		return nil
	}
	return e.current
}

// Metrics returns a snapshot of this Environment's runtime counters.
func (e *Environment) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// Create allocates a new Coroutine bound to this Environment. The
// backing goroutine is not started until the first Resume.
func (e *Environment) Create(fn Func, attr StackAttr) *Coroutine {
	e.claimOwner()
	co := &Coroutine{
		id:                 coroutineIDCounter.Add(1),
		env:                e,
		fn:                 fn,
		stackAttr:          attr,
		syscallHookEnabled: e.syscallHookEnabled.Load(),
		sw:                 newSwitchPoint(),
	}
	if attr.SharedPool != nil {
		co.sharedFrame = attr.SharedPool.assign()
	}
	co.storeState(CoroutineFresh)
	e.metrics.recordCoroutineMade()
	return co
}

// Resume transfers control from the calling goroutine to co, blocking
// until co yields (via YieldCurrent) or finishes. It must be called
// from the Environment's owner goroutine or from within the Coroutine
// currently running on it (see isOwner).
func (e *Environment) Resume(co *Coroutine) error {
	e.claimOwner()
	if !e.isOwner() {
		return ErrWrongEnvironment
	}
	if co.env != e {
		return ErrWrongEnvironment
	}

	switch co.loadState() {
	case CoroutineFinished:
		return ErrCoroutineFinished
	case CoroutineRunning:
		return ErrCoroutineRunning
	}

	if e.callChainDepth+1 > e.opts.maxCallChainDepth {
		return ErrCallChainFull
	}

	if co.sharedFrame != nil {
		if err := co.sharedFrame.tryOccupy(co); err != nil {
			return err
		}
	}

	co.parent = e.current
	e.current = co
	e.callChainDepth++
	e.metrics.recordCallChainDepth(e.callChainDepth)

	if !co.started {
		co.started = true
		go co.run()
	}

	co.sw.switchIn()

	e.callChainDepth--
	e.current = co.parent
	co.parent = nil

	if co.panicValue != nil {
		pv := co.panicValue
		co.panicValue = nil
		err := fmt.Errorf("coro: coroutine %d panicked: %v", co.id, pv)
		if l := e.opts.logger; l != nil && l.IsEnabled(LevelError) {
			l.Log(LogEntry{Level: LevelError, Category: CategoryCoroutine, EnvID: int64(e.id), CoroID: int64(co.id), Message: "coroutine panicked", Err: err})
		}
		return err
	}
	return nil
}

// YieldCurrent suspends the Coroutine currently on the call-chain,
// handing control back to whatever Resume call is waiting for it. It
// must be called from within a Coroutine's entry function (i.e. on its
// backing goroutine, which is the only goroutine switchPoint's
// rendezvous has unblocked while that Coroutine is current).
func (e *Environment) YieldCurrent() error {
	co := e.current
	if co == nil || co == e.mainCo {
		return ErrNotOnCallChain
	}
	co.Yield()
	return nil
}

// Release frees a finished (or never-started) Coroutine's resources. It
// is an error to release a Coroutine that is running or suspended.
func (e *Environment) Release(co *Coroutine) error {
	if co.env != e {
		return ErrWrongEnvironment
	}
	switch co.loadState() {
	case CoroutineRunning, CoroutineSuspended:
		return ErrCoroutineRunning
	}
	co.locals = nil
	e.metrics.recordCoroutineFreed()
	return nil
}

// Reset rearms a Fresh or Finished Coroutine with a new entry function,
// so its slot (and, in shared-stack mode, its pool frame assignment) can
// be reused without a fresh Create call.
func (e *Environment) Reset(co *Coroutine, fn Func) error {
	if co.env != e {
		return ErrWrongEnvironment
	}
	switch co.loadState() {
	case CoroutineRunning, CoroutineSuspended:
		return ErrNotResettable
	}
	co.fn = fn
	co.started = false
	co.panicValue = nil
	co.sw = newSwitchPoint()
	co.storeState(CoroutineFresh)
	return nil
}

// EnableSyscallInterception turns on blocking-I/O interception for
// Coroutines created from this point forward (existing Coroutines keep
// whatever setting was in effect at their Create call).
func (e *Environment) EnableSyscallInterception() {
	e.syscallHookEnabled.Store(true)
}

// DisableSyscallInterception turns off blocking-I/O interception for
// Coroutines created from this point forward.
func (e *Environment) DisableSyscallInterception() {
	e.syscallHookEnabled.Store(false)
}

// IsHookEnabled reports the Environment-wide default used for newly
// created Coroutines.
func (e *Environment) IsHookEnabled() bool {
	return e.syscallHookEnabled.Load()
}

// drainWake empties the wake fd after PollIO returns due to a
// cross-goroutine wake (see wakeup_linux.go/wakeup_darwin.go). It is
// registered as the wake fd's poller callback.
func (e *Environment) drainWake(IOEvents) {
	var buf [8]byte
	for {
		_, err := readFD(e.wakeReadFD, buf[:])
		if err != nil {
			return
		}
	}
}

// scheduleWaiter inserts w into the timing wheel, recording a clamp
// metric when delay exceeds the wheel's horizon (see SPEC_FULL.md §9
// item 1: the deadline is clamped into the last bucket, never an
// error, but it is observable via Metrics).
func (e *Environment) scheduleWaiter(w *waiter, delay time.Duration) {
	if delay > e.wheel.horizon() {
		e.metrics.recordWheelClamped()
		if l := e.opts.logger; l != nil && l.IsEnabled(LevelWarn) {
			l.Log(LogEntry{
				Level:    LevelWarn,
				Category: CategoryWheel,
				EnvID:    int64(e.id),
				Message:  "requested delay exceeds wheel horizon, clamping",
				Context:  map[string]any{"requested": delay, "horizon": e.wheel.horizon()},
			})
		}
	}
	e.wheel.insert(w, delay)
}

// wake breaks the owner goroutine out of a blocking PollIO call. Safe
// to call from any goroutine.
func (e *Environment) wake() {
	if e.wakeWriteFD < 0 {
		return
	}
	var one [8]byte
	one[7] = 1
	_, _ = writeFD(e.wakeWriteFD, one[:])
}

// getGoroutineID returns the calling goroutine's runtime-assigned ID by
// parsing it out of a runtime.Stack header line. Grounded on the
// teacher's isLoopThread/getGoroutineID (loop.go): the Go runtime
// exposes no supported API for this, and parsing the debug stack trace
// is the established idiom the ecosystem reaches for rather than
// reaching into runtime internals via go:linkname.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
