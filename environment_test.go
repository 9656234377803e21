package coro

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentReflectsCallChain(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)
	assert.Nil(t, env.Current())

	var seen *Coroutine
	co := env.Create(func(c *Coroutine) {
		seen = env.Current()
	}, StackAttr{})
	require.NoError(t, env.Resume(co))
	assert.Same(t, co, seen)
	assert.Nil(t, env.Current())
}

func TestMetricsTrackCoroutineLifecycle(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)

	co := env.Create(func(c *Coroutine) {}, StackAttr{})
	require.NoError(t, env.Resume(co))
	require.NoError(t, env.Release(co))

	snap := env.Metrics()
	assert.Equal(t, uint64(1), snap.CoroutinesMade)
	assert.Equal(t, uint64(1), snap.CoroutinesFreed)
}

func TestSyscallInterceptionToggle(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)
	assert.True(t, env.IsHookEnabled())

	env.DisableSyscallInterception()
	assert.False(t, env.IsHookEnabled())

	env.EnableSyscallInterception()
	assert.True(t, env.IsHookEnabled())
}

func TestEventLoopRejectsCrossGoroutineOwnership(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_ = env.EventLoop(ctx)
	}()
	time.Sleep(5 * time.Millisecond)

	err = env.Resume(env.Create(func(c *Coroutine) {}, StackAttr{}))
	assert.ErrorIs(t, err, ErrWrongEnvironment)

	wg.Wait()
}

func TestEventLoopReentranceRejected(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)
	env.claimOwner()

	co := env.Create(func(c *Coroutine) {
		err := env.EventLoop(context.Background())
		assert.ErrorIs(t, err, ErrReentrantRun)
	}, StackAttr{})
	require.NoError(t, env.Resume(co))
}

func TestShutdownTerminatesEventLoop(t *testing.T) {
	env, err := NewEnvironment()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- env.EventLoop(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	env.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("event loop did not shut down")
	}
	assert.Equal(t, StateTerminated, env.state.Load())
}
