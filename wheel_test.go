package coro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWheelHorizon(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	assert.Equal(t, 9*time.Millisecond, w.horizon())
}

func TestWheelInsertAndAdvance(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, 3*time.Millisecond)
	assert.Equal(t, 3, wt.bucket)

	for i := 0; i < 2; i++ {
		due := w.advance(1)
		assert.Empty(t, due)
	}
	due := w.advance(1)
	assert.Equal(t, []*waiter{wt}, due)
	assert.Equal(t, -1, wt.bucket)
}

func TestWheelClampsOverHorizon(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, time.Hour)
	assert.Equal(t, int(w.horizon()/time.Millisecond), wt.bucket)
}

func TestWheelCancel(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, 5*time.Millisecond)
	w.cancel(wt)
	assert.Equal(t, -1, wt.bucket)

	for i := 0; i < len(w.buckets); i++ {
		due := w.advance(1)
		assert.Empty(t, due)
	}
}

func TestWheelMultipleWaitersSameBucket(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	a := &waiter{bucket: -1}
	b := &waiter{bucket: -1}
	w.insert(a, 2*time.Millisecond)
	w.insert(b, 2*time.Millisecond)

	w.advance(1)
	due := w.advance(1)
	assert.ElementsMatch(t, []*waiter{a, b}, due)
}

func TestWheelNegativeDelayFiresOnNextTick(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, -time.Second)
	due := w.advance(1)
	assert.Equal(t, []*waiter{wt}, due)
}

// TestWheelAdvanceCatchesUpMultipleTicks verifies that a single
// advance(n) call with n > 1 walks n buckets in one go (the catch-up
// path tick() uses when real elapsed time outpaces a single tick),
// rather than only ever draining one bucket per call.
func TestWheelAdvanceCatchesUpMultipleTicks(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, 3*time.Millisecond)

	due := w.advance(3)
	assert.Equal(t, []*waiter{wt}, due)
	assert.Equal(t, -1, wt.bucket)
}

// TestWheelAdvanceClampsCatchUpToBucketCount ensures a pathologically
// large elapsed-tick count doesn't walk the cursor around more than one
// revolution: it would only revisit already-drained empty buckets.
func TestWheelAdvanceClampsCatchUpToBucketCount(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, 2*time.Millisecond)

	due := w.advance(1000)
	assert.Equal(t, []*waiter{wt}, due)
	assert.Equal(t, 0, w.cursor)
}

// TestWheelAdvanceZeroOrNegativeIsNoop guards the core fix for firing
// waiters early under load: when no real tick's worth of time has
// elapsed, advance must not move the cursor or fire anything, even if
// a waiter is already due at the next bucket.
func TestWheelAdvanceZeroOrNegativeIsNoop(t *testing.T) {
	w := newWheel(10, time.Millisecond)
	wt := &waiter{bucket: -1}
	w.insert(wt, time.Millisecond)

	assert.Empty(t, w.advance(0))
	assert.Empty(t, w.advance(-1))
	assert.Equal(t, 0, w.cursor)

	due := w.advance(1)
	assert.Equal(t, []*waiter{wt}, due)
}
