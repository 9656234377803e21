package coro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyQueueFIFO(t *testing.T) {
	q := newReadyQueue()
	w1, w2, w3 := &waiter{id: 1}, &waiter{id: 2}, &waiter{id: 3}
	q.push(w1)
	q.push(w2)
	q.push(w3)
	assert.Equal(t, 3, q.Length())

	for _, want := range []*waiter{w1, w2, w3} {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Same(t, want, got)
	}
	_, ok := q.pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Length())
}

func TestReadyQueueSpansMultipleChunks(t *testing.T) {
	q := newReadyQueue()
	n := readyChunkSize*2 + 5
	items := make([]*waiter, n)
	for i := range items {
		items[i] = &waiter{id: uint64(i)}
		q.push(items[i])
	}
	assert.Equal(t, n, q.Length())

	for i := 0; i < n; i++ {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Same(t, items[i], got)
	}
	_, ok := q.pop()
	assert.False(t, ok)
}

func TestReadyQueueInterleavedPushPop(t *testing.T) {
	q := newReadyQueue()
	a, b := &waiter{id: 1}, &waiter{id: 2}
	q.push(a)
	got, ok := q.pop()
	require.True(t, ok)
	assert.Same(t, a, got)

	q.push(b)
	got, ok = q.pop()
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = q.pop()
	assert.False(t, ok)
}
