package connpool

import "sync/atomic"

// sizeGuard holds the responsibility of decrementing the pool's size
// counter exactly once. One guard exists for every increment of size, so
// that a connection slot can never be leaked: whoever ends up owning the
// guard either releases it (freeing the slot and waking one waiter) or
// cancels it (transferring the decrement responsibility elsewhere, e.g.
// into a checked-out connection that will release on its own terms).
//
// A guard is owned by a single goroutine at a time and is not safe for
// concurrent use.
type sizeGuard struct {
	size    *atomic.Int32
	waiters *waitList

	released bool
	canceled bool
}

func (p *sharedPool[C]) newSizeGuard() *sizeGuard {
	return &sizeGuard{size: &p.size, waiters: &p.waiters}
}

// release frees the slot: decrements the size counter and wakes one
// waiter. Releasing the same guard twice is an accounting bug and panics.
// release after cancel is a no-op, which keeps `defer guard.release()`
// usable on paths that may hand the guard off mid-way.
func (g *sizeGuard) release() {
	if g.canceled {
		return
	}
	if g.released {
		panic("BUG: connpool: size guard released twice")
	}
	g.released = true
	g.size.Add(-1)
	g.waiters.wakeOne()
}

// cancel forgets the guard without decrementing. Used when the decrement
// responsibility has been transferred, e.g. into a Pooled wrapper or an
// idle queue slot.
func (g *sizeGuard) cancel() {
	if g.released {
		panic("BUG: connpool: size guard canceled after release")
	}
	g.canceled = true
}

// samePool reports whether the guard belongs to the given pool. Used in
// the permit identity assertions.
func (g *sizeGuard) samePool(size *atomic.Int32) bool {
	return g.size == size
}

// connectPermit is the right to open exactly one new physical connection.
// It is granted by tryAcquire when the size counter was incremented under
// the cap, and must be spent on exactly one connect call; the connect path
// releases or transfers the inner guard on every outcome.
type connectPermit struct {
	guard *sizeGuard
}

// acquirePermit proves that its holder has already waited on the wait
// list at least once, letting tryAcquire serve it ahead of newly arriving
// callers. It carries a pointer to the owning pool's size counter purely
// for the cross-pool sanity check.
type acquirePermit struct {
	size *atomic.Int32
}
