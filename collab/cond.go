// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package collab provides coroutine-scoped collaboration primitives
// built on top of coro: condition variables and similar rendezvous
// helpers that original_source ships as standalone collaborators
// (example_cond.cpp's stCoCond_t) rather than core runtime types.
package collab

import (
	"container/list"

	"github.com/joeycumines/coro"
)

// Cond is a single-environment condition variable for coroutines,
// grounded on original_source's stCoCond_t (example_cond.cpp): a FIFO
// of waiting coroutines woken one at a time by Signal or all at once by
// Broadcast. Unlike sync.Cond it carries no associated Locker, because
// a coro.Environment is already single-threaded — there is no
// concurrent mutation to guard against, only ordering between
// coroutines that yield to each other.
type Cond struct {
	env     *coro.Environment
	waiters list.List // of *waitNode
}

type waitNode struct {
	co    *coro.Coroutine
	woken bool
}

// NewCond creates a Cond scoped to env. All Wait/Signal/Broadcast calls
// on it must happen from Coroutines running on that same Environment.
func NewCond(env *coro.Environment) *Cond {
	return &Cond{env: env}
}

// Wait suspends the calling Coroutine until a matching Signal or
// Broadcast. It must be called from within a Coroutine's entry
// function. Mirrors stCoCond_t's co_cond_wait: the caller is expected
// to have already updated whatever condition it's waiting on (or be
// about to re-check it after waking, since this is a plain FIFO wait
// with no predicate baked in).
func (c *Cond) Wait() error {
	co := c.env.Current()
	if co == nil {
		return coro.ErrNotOnCallChain
	}
	node := &waitNode{co: co}
	elem := c.waiters.PushBack(node)
	err := c.env.YieldCurrent()
	if !node.woken {
		c.waiters.Remove(elem)
	}
	return err
}

// Signal wakes the longest-waiting Coroutine blocked on c, if any. The
// woken Coroutine is resumed immediately by a direct Resume call here,
// and runs until it next yields before Signal returns, matching
// stCoCond_t's co_cond_signal semantics of an immediate, synchronous
// wakeup within the same tick.
func (c *Cond) Signal() error {
	elem := c.waiters.Front()
	if elem == nil {
		return nil
	}
	c.waiters.Remove(elem)
	node := elem.Value.(*waitNode)
	node.woken = true
	return c.env.Resume(node.co)
}

// Broadcast wakes every Coroutine currently blocked on c, in FIFO
// order, mirroring stCoCond_t's co_cond_broadcast.
func (c *Cond) Broadcast() error {
	for {
		elem := c.waiters.Front()
		if elem == nil {
			return nil
		}
		c.waiters.Remove(elem)
		node := elem.Value.(*waitNode)
		node.woken = true
		if err := c.env.Resume(node.co); err != nil {
			return err
		}
	}
}

// Len reports how many Coroutines are currently waiting on c.
func (c *Cond) Len() int {
	return c.waiters.Len()
}
