// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// switch.go - the context-switch substitute: goroutine parking on a
// rendezvous channel pair.
//
// Grounded on alphadose/zenq's ThreadParker (thread_parker.go), which
// gets context-switch-like handoff between goroutines by parking one
// on a blocked channel operation and waking it with a send from the
// other side — here done with plain channels rather than zenq's
// go:linkname calls into runtime.gopark/goready, trading a few dozen
// nanoseconds of scheduler overhead for portability across Go
// versions and platforms. See SPEC_FULL.md §0 for why this, and not
// hand-written assembly, is the idiomatic translation of spec.md's
// coctx_swap.
//
// A switchPoint rendezvous is exactly two channels: resume wakes the
// coroutine's backing goroutine to run, yield wakes whichever
// goroutine called Resume. Exactly one side is ever blocked at a time,
// mirroring the asymmetric (callee explicitly yields back to its
// caller) discipline spec.md §4.1 requires.
package coro

// switchPoint is the rendezvous a Coroutine's backing goroutine and its
// resumer use to hand control back and forth. Both channels are
// unbuffered: a send only completes once the other side is parked on
// the matching receive, which is what gives the handoff its
// synchronous, exactly-one-side-running semantics.
type switchPoint struct {
	resume chan struct{}
	yield  chan struct{}
}

func newSwitchPoint() *switchPoint {
	return &switchPoint{
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
}

// awaitResume parks the calling (backing) goroutine until the resumer
// sends on resume.
func (s *switchPoint) awaitResume() {
	<-s.resume
}

// switchIn wakes the backing goroutine and blocks until it yields or
// finishes. Called from the resumer's goroutine.
func (s *switchPoint) switchIn() {
	s.resume <- struct{}{}
	<-s.yield
}

// switchOut hands control back to whichever goroutine is blocked in
// switchIn. Called from the backing goroutine.
func (s *switchPoint) switchOut() {
	s.yield <- struct{}{}
}
