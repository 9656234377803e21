//go:build linux

package coro

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestConnectWaitCeilingIsSeventyFiveSeconds(t *testing.T) {
	assert.Equal(t, 75*time.Second, connectWaitSlice*connectWaitSlices)
}

// TestConnectSucceedsAgainstListeningPeer drives a nonblocking connect
// against a real loopback listener through to completion, covering both
// the synchronous-success and the EINPROGRESS-then-poll paths (loopback
// connects frequently complete before the first poll, but not always).
func TestConnectSucceedsAgainstListeningPeer(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, acceptErr := ln.Accept()
		if acceptErr == nil {
			c.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To4())

	env, err := NewEnvironment(WithTick(time.Millisecond))
	require.NoError(t, err)

	var connectErr error
	co := env.Create(func(c *Coroutine) {
		connectErr = env.Connect(fd, sa)
	}, StackAttr{})

	require.NoError(t, env.Resume(co))
	driveUntil(t, env, co, time.Second)
	require.Equal(t, CoroutineFinished, co.State())
	assert.NoError(t, connectErr)
}

// TestConnectRefusedSurfacesSocketError exercises the waiter-driven path
// where the connect is still pending when Connect first returns
// (EINPROGRESS), and completion arrives via the poller once the kernel
// delivers the refusal.
func TestConnectRefusedSurfacesSocketError(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close()) // nothing listens on this port now

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To4())

	env, err := NewEnvironment(WithTick(time.Millisecond))
	require.NoError(t, err)

	var connectErr error
	co := env.Create(func(c *Coroutine) {
		connectErr = env.Connect(fd, sa)
	}, StackAttr{})

	require.NoError(t, env.Resume(co))
	driveUntil(t, env, co, time.Second)
	require.Equal(t, CoroutineFinished, co.State())
	assert.Error(t, connectErr)
}

// TestConnectClampsSliceToWheelHorizon verifies that a wheel configured
// with a horizon shorter than connectWaitSlice clamps each retry down
// to that horizon (recorded via Metrics) rather than actually waiting
// 25s per slice, so the three-slice ceiling is bounded by the wheel's
// horizon in the worst case, not by wall-clock time.
func TestConnectClampsSliceToWheelHorizon(t *testing.T) {
	env, err := NewEnvironment(WithTick(time.Millisecond), WithWheelBuckets(4))
	require.NoError(t, err)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fd)
	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To4())

	co := env.Create(func(c *Coroutine) {
		_ = env.Connect(fd, sa)
	}, StackAttr{})

	require.NoError(t, env.Resume(co))
	driveUntil(t, env, co, time.Second)
	require.Equal(t, CoroutineFinished, co.State())
	assert.NotZero(t, env.Metrics().WheelClamped)
}
