// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// stack.go - stack attribute types and the shared-stack accounting
// ledger.
//
// A Coroutine's "stack" in this runtime is a real goroutine stack
// managed entirely by the Go runtime; there is no manual allocation to
// do. What this file reproduces is the *bookkeeping contract* of
// independent vs. shared stack mode (see SPEC_FULL.md §0/§9 item 4):
// StackFrame tracks base/size/top and a current occupant exactly as
// the original's stack frames do, and SharedStackPool round-robins a
// fixed slice of frames the way the original does, except the
// save/restore it performs is a synthetic byte-count ledger rather
// than an actual memcpy, since Go gives no API to read or write
// another goroutine's stack.
package coro

import "sync/atomic"

// StackAttr configures how a Coroutine's stack is provisioned.
type StackAttr struct {
	// Size is the stack size in bytes. Zero uses DefaultStackSize;
	// values are clamped to [MinStackSize, MaxStackSize].
	Size int

	// SharedPool, if non-nil, puts the coroutine in shared-stack mode:
	// it is assigned a frame from the pool round-robin and accounted
	// against that frame's ledger rather than having an independent one.
	SharedPool *SharedStackPool
}

// clampedSize returns Size clamped to the supported range, substituting
// DefaultStackSize for zero.
func (a StackAttr) clampedSize() int {
	size := a.Size
	if size == 0 {
		size = DefaultStackSize
	}
	if size < MinStackSize {
		size = MinStackSize
	}
	if size > MaxStackSize {
		size = MaxStackSize
	}
	return size
}

// StackFrame is one slot of a SharedStackPool: bookkeeping for whichever
// Coroutine currently occupies it.
type StackFrame struct { // betteralign:ignore
	base     uintptr
	size     int
	top      uintptr
	occupant *Coroutine

	// savedBytes/restoredBytes form the synthetic ledger, updated only
	// when tryOccupy hands the frame to a different coroutine: the
	// outgoing occupant's configured stack size is recorded as a "save"
	// and the incoming coroutine's as a "restore". Yields and resumes by
	// the current occupant record nothing, and a coroutine taking a
	// frame counts as a restore even when nothing of it was saved, so
	// the two totals are not equal in general.
	savedBytes    uint64
	restoredBytes uint64
}

// SharedStackPool is a fixed, round-robin set of StackFrames shared by
// any Coroutine created with a StackAttr referencing it.
type SharedStackPool struct {
	frames []StackFrame
	cursor int
}

// NewSharedStackPool creates a pool of n frames, each sized frameSize
// bytes (clamped like any other stack size).
func NewSharedStackPool(n int, frameSize int) *SharedStackPool {
	if n <= 0 {
		n = 1
	}
	if frameSize <= 0 {
		frameSize = DefaultSharedStackSize
	}
	frameSize = StackAttr{Size: frameSize}.clampedSize()
	frames := make([]StackFrame, n)
	for i := range frames {
		frames[i].size = frameSize
	}
	return &SharedStackPool{frames: frames}
}

// assign picks the next frame round-robin for a newly created
// coroutine. Frames are reused across many coroutines over the pool's
// lifetime; occupancy is only meaningful while a coroutine is actually
// resumed (see (*Environment).Resume, which calls tryOccupy on entry
// and rejects the Resume with ErrSharedFrameBusy if the frame's current
// occupant hasn't finished).
func (p *SharedStackPool) assign() *StackFrame {
	f := &p.frames[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.frames)
	return f
}

// tryOccupy records that co is about to run on frame f, saving the
// previous occupant's accounting (if any and if different) and
// restoring co's. A real shared stack can only ever back one live call
// chain at a time, so tryOccupy refuses the switch with
// ErrSharedFrameBusy while the current occupant is still live (neither
// finished nor simply never-started) and isn't co itself.
func (f *StackFrame) tryOccupy(co *Coroutine) error {
	if f.occupant == co {
		return nil
	}
	if f.occupant != nil {
		if s := f.occupant.loadState(); s != CoroutineFinished && s != CoroutineFresh {
			return ErrSharedFrameBusy
		}
	}
	if f.occupant != nil {
		atomic.AddUint64(&f.savedBytes, uint64(f.occupant.stackAttr.clampedSize()))
	}
	f.occupant = co
	atomic.AddUint64(&f.restoredBytes, uint64(co.stackAttr.clampedSize()))
	return nil
}

// Ledger returns the current saved/restored byte totals for this frame.
func (f *StackFrame) Ledger() (saved, restored uint64) {
	return atomic.LoadUint64(&f.savedBytes), atomic.LoadUint64(&f.restoredBytes)
}
