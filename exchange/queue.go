// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// PageQueue is a byte-accounted-by-its-caller, count-unbounded MPSC
// FIFO of pages. Any number of sub-client goroutines may PushAll;
// only a single consumer goroutine may Poll or PollWithTimeout at a
// time. The queue itself knows nothing about buffer_bytes or
// max_buffered_bytes — that accounting lives on the façade, which is
// why PushAll never refuses a batch.
type PageQueue struct {
	clock clock.Clock

	mu      sync.Mutex
	items   []*Page
	waiters []chan struct{}
}

// NewPageQueue constructs an empty queue. A nil clock defaults to the
// real wall clock; tests inject a clock.Mock to make timeouts
// deterministic.
func NewPageQueue(c clock.Clock) *PageQueue {
	if c == nil {
		c = clock.New()
	}
	return &PageQueue{clock: c}
}

// PushAll appends a producer's batch in order and wakes anyone
// waiting on PollWithTimeout.
func (q *PageQueue) PushAll(pages []*Page) {
	if len(pages) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, pages...)
	waiters := q.drainWaitersLocked()
	q.mu.Unlock()
	wake(waiters)
}

// AppendSentinelIfAbsent appends Sentinel unless the queue already
// ends with it.
func (q *PageQueue) AppendSentinelIfAbsent() {
	q.mu.Lock()
	if n := len(q.items); n > 0 && q.items[n-1] == Sentinel {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, Sentinel)
	waiters := q.drainWaitersLocked()
	q.mu.Unlock()
	wake(waiters)
}

// Poll returns the head of the queue without blocking.
func (q *PageQueue) Poll() (*Page, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pollLocked()
}

func (q *PageQueue) pollLocked() (*Page, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// PollWithTimeout blocks up to d for a page to become available. It
// returns (nil, false) on timeout; it never blocks past d even if no
// page ever arrives.
func (q *PageQueue) PollWithTimeout(d time.Duration) (*Page, bool) {
	q.mu.Lock()
	if p, ok := q.pollLocked(); ok {
		q.mu.Unlock()
		return p, true
	}
	waiter := make(chan struct{})
	q.waiters = append(q.waiters, waiter)
	q.mu.Unlock()

	timer := q.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-waiter:
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.pollLocked()
	case <-timer.C:
		q.removeWaiter(waiter)
		return nil, false
	}
}

// removeWaiter drops waiter from the waiter set on the timeout path.
// It is a no-op if waiter was already drained (and closed) by a
// concurrent PushAll/AppendSentinelIfAbsent/Clear, which races
// harmlessly against the timer firing: the page such a race delivers
// stays in the queue for the next Poll/PollWithTimeout call.
func (q *PageQueue) removeWaiter(waiter chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == waiter {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// PeekHead returns the queue's first element without removing it.
func (q *PageQueue) PeekHead() (*Page, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// PeekTail returns the queue's last element without removing it.
func (q *PageQueue) PeekTail() (*Page, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[len(q.items)-1], true
}

// Len reports the number of buffered pages, excluding the sentinel.
func (q *PageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n > 0 && q.items[n-1] == Sentinel {
		n--
	}
	return n
}

// Clear empties the queue and returns everything that was in it
// (including a trailing sentinel, if present), for the caller to
// reconcile memory accounting against.
func (q *PageQueue) Clear() []*Page {
	q.mu.Lock()
	cleared := q.items
	q.items = nil
	waiters := q.drainWaitersLocked()
	q.mu.Unlock()
	wake(waiters)
	return cleared
}

func (q *PageQueue) drainWaitersLocked() []chan struct{} {
	waiters := q.waiters
	q.waiters = nil
	return waiters
}

func wake(waiters []chan struct{}) {
	for _, w := range waiters {
		close(w)
	}
}
