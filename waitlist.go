package connpool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// waitList is a fair queue of callers waiting for a pool slot.
//
// Waiters enqueue themselves and then either select on their wake channel
// together with a context (the context-aware path) or park with an optional
// deadline (the blocking path). wakeOne marks the oldest not-yet-woken
// waiter as woken and closes its channel. A waiter that is woken but
// abandons the wait (cancellation, deadline) passes the wake to the next
// waiter in line so a freed slot is never silently lost.
type waitList struct {
	mu      sync.Mutex
	waiters list.List // of *waiter

	// count mirrors waiters.Len for the lock-free isEmpty fast path.
	count atomic.Int32
}

type waiter struct {
	list *waitList
	elem *list.Element

	// ready is closed when the waiter is woken. woken and removed are
	// guarded by list.mu.
	ready   chan struct{}
	woken   bool
	removed bool
}

// enqueue registers a new waiter at the tail of the list.
func (l *waitList) enqueue() *waiter {
	w := &waiter{list: l, ready: make(chan struct{})}

	l.mu.Lock()
	w.elem = l.waiters.PushBack(w)
	l.mu.Unlock()

	l.count.Add(1)
	return w
}

// isEmpty reports whether no waiters are queued. It is racy and is used
// only to let non-waiting callers skip the queue when nothing is waiting;
// it must never be relied on for correctness.
func (l *waitList) isEmpty() bool {
	return l.count.Load() == 0
}

// wakeOne gives the oldest not-yet-woken waiter the opportunity to retry
// its acquire. The woken waiter is not guaranteed to win the ensuing race;
// callers of wait must loop.
func (l *waitList) wakeOne() {
	l.mu.Lock()
	l.wakeOneLocked()
	l.mu.Unlock()
}

func (l *waitList) wakeOneLocked() {
	for e := l.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		if !w.woken {
			w.woken = true
			close(w.ready)
			return
		}
	}
}

// wakeAll wakes every queued waiter. Used on pool close so that all
// pending acquires observe the closed flag.
func (l *waitList) wakeAll() {
	l.mu.Lock()
	for e := l.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		if !w.woken {
			w.woken = true
			close(w.ready)
		}
	}
	l.mu.Unlock()
}

// dequeue removes w from the list. consumed reports whether the caller
// actually observed the wake; if w was woken but the wake was not
// consumed, it is handed to the next waiter.
func (w *waiter) dequeue(consumed bool) {
	l := w.list

	l.mu.Lock()
	if !w.removed {
		l.waiters.Remove(w.elem)
		w.removed = true
		l.count.Add(-1)
	}
	if w.woken && !consumed {
		l.wakeOneLocked()
	}
	l.mu.Unlock()
}

// wait suspends until the waiter is woken or ctx is done. It always
// dequeues the waiter before returning, so abandoning a wait leaks
// nothing and cannot stall other waiters.
func (w *waiter) wait(ctx context.Context) error {
	select {
	case <-w.ready:
		w.dequeue(true)
		return nil
	case <-ctx.Done():
		w.dequeue(false)
		return context.Cause(ctx)
	}
}

// waitDeadline parks the calling goroutine until woken. A zero deadline
// means wait forever. Returns false if the deadline elapsed first.
func (w *waiter) waitDeadline(deadline time.Time) bool {
	if deadline.IsZero() {
		<-w.ready
		w.dequeue(true)
		return true
	}

	d := time.Until(deadline)
	if d <= 0 {
		w.dequeue(false)
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.ready:
		w.dequeue(true)
		return true
	case <-timer.C:
		w.dequeue(false)
		return false
	}
}
