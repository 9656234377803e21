package coro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshotStartsZero(t *testing.T) {
	var m Metrics
	snap := m.Snapshot()
	assert.Zero(t, snap.Ticks)
	assert.Zero(t, snap.CoroutinesMade)
	assert.Zero(t, snap.CallChainMaxSeen)
}

func TestMetricsRecordersIncrementCounters(t *testing.T) {
	var m Metrics
	m.recordTick()
	m.recordTick()
	m.recordCoroutineMade()
	m.recordCoroutineFreed()
	m.recordWaiterFired()
	m.recordWaiterTimedOut()
	m.recordWheelClamped()
	m.recordHookFallback()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Equal(t, uint64(1), snap.CoroutinesMade)
	assert.Equal(t, uint64(1), snap.CoroutinesFreed)
	assert.Equal(t, uint64(1), snap.WaitersFired)
	assert.Equal(t, uint64(1), snap.WaitersTimedOut)
	assert.Equal(t, uint64(1), snap.WheelClamped)
	assert.Equal(t, uint64(1), snap.HookFallbacks)
}

func TestMetricsRecordCallChainDepthTracksMax(t *testing.T) {
	var m Metrics
	m.recordCallChainDepth(2)
	m.recordCallChainDepth(5)
	m.recordCallChainDepth(3)

	assert.Equal(t, uint64(5), m.Snapshot().CallChainMaxSeen)
}
