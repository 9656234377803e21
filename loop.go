// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// loop.go - the Environment's event loop: poll for I/O readiness, drain
// due timing-wheel buckets, dispatch every now-ready waiter by resuming
// its Coroutine.
//
// Grounded on the teacher's loop.go run/tick/poll structure (state
// machine driven by loopState, a context-cancellation watcher goroutine
// that wakes a blocked poll via the wake fd) generalized from task
// dispatch to Coroutine-resume dispatch, and on original_source's
// co_eventloop (co_routine.cpp): poll → co_epoll_wait with the nearest
// timeout → walk the fired list and the expired-timeout list → resume
// each.
package coro

import (
	"context"
	"time"
)

// EventLoop runs the Environment's dispatch loop until ctx is canceled
// or Shutdown is called. It must be called from the goroutine that owns
// this Environment (the first caller of Create, Resume or EventLoop
// claims ownership); calling it reentrantly from within a Coroutine running on
// this same Environment returns ErrReentrantRun.
func (e *Environment) EventLoop(ctx context.Context) error {
	e.claimOwner()
	if !e.isOwner() {
		return ErrWrongEnvironment
	}
	if e.current != e.mainCo {
		return ErrReentrantRun
	}
	if !e.state.TryTransition(StateAwake, StateRunning) {
		if s := e.state.Load(); s == StateTerminating || s == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}
	if l := e.opts.logger; l != nil && l.IsEnabled(LevelInfo) {
		l.Log(LogEntry{Level: LevelInfo, Category: CategoryLoop, EnvID: int64(e.id), Message: "event loop starting"})
	}

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.wake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	for {
		select {
		case <-ctx.Done():
			e.state.Store(StateTerminating)
		default:
		}

		switch e.state.Load() {
		case StateTerminating:
			e.shutdown()
			return ctx.Err()
		case StateTerminated:
			return nil
		}

		e.tick()
	}
}

// tick runs one iteration: poll for I/O (blocking up to the nearest
// wheel deadline), advance the wheel by however many ticks' worth of
// buckets actually elapsed in wall-clock time, then dispatch every
// waiter that is now ready.
func (e *Environment) tick() {
	timeoutMs := 0
	if e.ready.Length() == 0 {
		timeoutMs = int(e.opts.tick / time.Millisecond)
		if timeoutMs < 1 {
			timeoutMs = 1
		}
	}

	// Outside EventLoop (state Awake) callers drive tick directly; the
	// Running/Sleeping mark is only kept while the loop itself runs, and
	// a terminating or terminated loop does not poll at all.
	sleeping := e.state.TryTransition(StateRunning, StateSleeping)
	if !sleeping && e.state.Load() != StateAwake {
		return
	}
	_, _ = e.poll.PollIO(timeoutMs)
	if sleeping {
		e.state.TryTransition(StateSleeping, StateRunning)
	}

	// The wheel must advance by real elapsed time, not by a fixed one
	// bucket per call: when the ready queue is non-empty, PollIO above
	// is given a zero timeout and tick() is called back-to-back, so a
	// fixed one-bucket advance would race the wheel's virtual clock
	// ahead of wall-clock time and fire waiters before their deadline.
	// ticks is banked against lastTickAt in whole-tick increments, so a
	// burst of calls faster than one tick duration advances zero
	// buckets until enough real time has actually accumulated.
	now := time.Now()
	if ticks := int(now.Sub(e.lastTickAt) / e.opts.tick); ticks > 0 {
		e.lastTickAt = e.lastTickAt.Add(time.Duration(ticks) * e.opts.tick)
		for _, w := range e.wheel.advance(ticks) {
			e.metrics.recordWaiterTimedOut()
			w.fire(true)
		}
	}

	e.metrics.recordTick()
	e.drainReady()
}

// drainReady resumes every Coroutine whose waiter is currently on the
// ready queue. Waiters queued by a resume triggered from within this
// same drain (a Coroutine that yields and is immediately re-armed) are
// picked up on the next tick, not this one, preserving FIFO fairness
// per spec.md's Non-goals ("fairness beyond FIFO" is explicitly out of
// scope, but within-tick starvation is still avoided this way).
func (e *Environment) drainReady() {
	pending := e.ready.Length()
	for i := 0; i < pending; i++ {
		w, ok := e.ready.pop()
		if !ok {
			return
		}
		e.metrics.recordWaiterFired()
		_ = e.Resume(w.co)
	}
}

// Shutdown requests the event loop terminate at the next tick boundary;
// the running loop then closes the poller and wake fd. Safe to call from
// any goroutine.
func (e *Environment) Shutdown() {
	for {
		cur := e.state.Load()
		if cur == StateTerminating || cur == StateTerminated {
			return
		}
		if e.state.TryTransition(cur, StateTerminating) {
			e.wake()
			return
		}
	}
}

// shutdown performs the actual teardown once the loop has observed
// StateTerminating.
func (e *Environment) shutdown() {
	_ = e.poll.Close()
	_ = closeWakeFD(e.wakeReadFD, e.wakeWriteFD)
	e.state.Store(StateTerminated)
	if l := e.opts.logger; l != nil && l.IsEnabled(LevelInfo) {
		l.Log(LogEntry{Level: LevelInfo, Category: CategoryLoop, EnvID: int64(e.id), Message: "event loop terminated"})
	}
}

