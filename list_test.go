package coro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaiterListPushAndDrain(t *testing.T) {
	var l waiterList
	a, b, c := &waiter{}, &waiter{}, &waiter{}
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)
	assert.Equal(t, 3, l.length)

	out := l.drain()
	assert.Equal(t, []*waiter{a, b, c}, out)
	assert.Equal(t, 0, l.length)
	assert.Nil(t, l.head)
	assert.Nil(t, l.tail)
}

func TestWaiterListRemoveMiddle(t *testing.T) {
	var l waiterList
	a, b, c := &waiter{}, &waiter{}, &waiter{}
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)

	l.remove(b)
	assert.Equal(t, 2, l.length)
	assert.Nil(t, b.prev)
	assert.Nil(t, b.next)

	out := l.drain()
	assert.Equal(t, []*waiter{a, c}, out)
}

func TestWaiterListRemoveHeadAndTail(t *testing.T) {
	var l waiterList
	a, b := &waiter{}, &waiter{}
	l.pushBack(a)
	l.pushBack(b)

	l.remove(a)
	assert.Equal(t, b, l.head)
	assert.Equal(t, b, l.tail)

	l.remove(b)
	assert.Nil(t, l.head)
	assert.Nil(t, l.tail)
	assert.Equal(t, 0, l.length)
}

func TestWaiterListDrainEmpty(t *testing.T) {
	var l waiterList
	assert.Nil(t, l.drain())
}
