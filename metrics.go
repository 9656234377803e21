package coro

import "sync/atomic"

// Metrics tracks low-overhead runtime statistics for one Environment.
// Every field is an independent atomic counter; Snapshot returns a
// point-in-time copy safe for concurrent reads.
//
// This mirrors the teacher eventloop package's atomic-counter metrics
// block, trimmed of the P-Square latency-percentile machinery
// (psquare.go in the teacher) since this runtime has no promise/task
// latency distribution to characterize — see DESIGN.md.
type Metrics struct { // betteralign:ignore
	ticks            atomic.Uint64
	coroutinesMade   atomic.Uint64
	coroutinesFreed  atomic.Uint64
	waitersFired     atomic.Uint64
	waitersTimedOut  atomic.Uint64
	wheelClamped     atomic.Uint64
	hookFallbacks    atomic.Uint64
	callChainMaxSeen atomic.Uint64
}

// MetricsSnapshot is an immutable copy of a Metrics instance's counters.
type MetricsSnapshot struct {
	Ticks            uint64
	CoroutinesMade   uint64
	CoroutinesFreed  uint64
	WaitersFired     uint64
	WaitersTimedOut  uint64
	WheelClamped     uint64
	HookFallbacks    uint64
	CallChainMaxSeen uint64
}

// Snapshot returns the current values of every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Ticks:            m.ticks.Load(),
		CoroutinesMade:   m.coroutinesMade.Load(),
		CoroutinesFreed:  m.coroutinesFreed.Load(),
		WaitersFired:     m.waitersFired.Load(),
		WaitersTimedOut:  m.waitersTimedOut.Load(),
		WheelClamped:     m.wheelClamped.Load(),
		HookFallbacks:    m.hookFallbacks.Load(),
		CallChainMaxSeen: m.callChainMaxSeen.Load(),
	}
}

func (m *Metrics) recordTick()           { m.ticks.Add(1) }
func (m *Metrics) recordCoroutineMade()  { m.coroutinesMade.Add(1) }
func (m *Metrics) recordCoroutineFreed() { m.coroutinesFreed.Add(1) }
func (m *Metrics) recordWaiterFired()    { m.waitersFired.Add(1) }
func (m *Metrics) recordWaiterTimedOut() { m.waitersTimedOut.Add(1) }
func (m *Metrics) recordWheelClamped()   { m.wheelClamped.Add(1) }
func (m *Metrics) recordHookFallback()   { m.hookFallbacks.Add(1) }

func (m *Metrics) recordCallChainDepth(depth int) {
	for {
		cur := m.callChainMaxSeen.Load()
		if uint64(depth) <= cur {
			return
		}
		if m.callChainMaxSeen.CompareAndSwap(cur, uint64(depth)) {
			return
		}
	}
}
