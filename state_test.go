package coro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopStateStringValues(t *testing.T) {
	assert.Equal(t, "Awake", StateAwake.String())
	assert.Equal(t, "Terminated", StateTerminated.String())
	assert.Equal(t, "Sleeping", StateSleeping.String())
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "Terminating", StateTerminating.String())
	assert.Equal(t, "Unknown", LoopState(99).String())
}

func TestNewLoopStateStartsAwake(t *testing.T) {
	s := newLoopState()
	assert.Equal(t, StateAwake, s.Load())
	assert.True(t, s.CanAcceptWork())
}

func TestLoopStateTryTransitionRejectsWrongFrom(t *testing.T) {
	s := newLoopState()
	assert.False(t, s.TryTransition(StateRunning, StateSleeping))
	assert.Equal(t, StateAwake, s.Load())
}

func TestLoopStateFullLifecycle(t *testing.T) {
	s := newLoopState()

	assert.True(t, s.TryTransition(StateAwake, StateRunning))
	assert.True(t, s.CanAcceptWork())

	assert.True(t, s.TryTransition(StateRunning, StateSleeping))
	assert.True(t, s.CanAcceptWork())

	assert.True(t, s.TryTransition(StateSleeping, StateRunning))
	assert.True(t, s.TryTransition(StateRunning, StateTerminating))
	assert.True(t, s.CanAcceptWork())

	s.Store(StateTerminated)
	assert.False(t, s.CanAcceptWork())
}
