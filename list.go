// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// list.go - a minimal intrusive doubly-linked list of *waiter nodes.
//
// Grounded on the intrusive node-queue idiom used by the zenq thread
// parker (thread_parker.go's Enqueue/Dequeue over *CacheLinePadded
// nodes): membership pointers live on the node itself so insertion and,
// critically, O(1) removal from the middle of a timing-wheel bucket
// don't need a separate allocation or a linear scan. Unlike zenq's
// queue this is single-consumer/single-producer by construction (only
// ever touched from the Environment's own loop goroutine), so no
// atomics are needed here.
package coro

// waiterList is an intrusive doubly-linked list of waiters, used as the
// contents of one timing-wheel bucket.
type waiterList struct {
	head, tail *waiter
	length     int
}

// pushBack appends w to the end of the list.
func (l *waiterList) pushBack(w *waiter) {
	w.prev = l.tail
	w.next = nil
	if l.tail != nil {
		l.tail.next = w
	} else {
		l.head = w
	}
	l.tail = w
	l.length++
}

// remove detaches w from the list. w must currently be a member of l.
func (l *waiterList) remove(w *waiter) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		l.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		l.tail = w.prev
	}
	w.prev = nil
	w.next = nil
	l.length--
}

// drain removes and returns every waiter currently in the list, leaving
// it empty.
func (l *waiterList) drain() []*waiter {
	if l.length == 0 {
		return nil
	}
	out := make([]*waiter, 0, l.length)
	for w := l.head; w != nil; {
		next := w.next
		w.prev, w.next = nil, nil
		out = append(out, w)
		w = next
	}
	l.head, l.tail, l.length = nil, nil, 0
	return out
}
