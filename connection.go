package connpool

import (
	"context"
	"time"
)

// Pooled is a connection checked out from a Pool.
//
// The holder has exclusive ownership of the underlying connection until it
// calls Release or Detach, exactly once. Go has no destructors, so unlike
// a scope-based guard the return to the pool is explicit; forgetting to
// release a Pooled permanently consumes one pool slot.
type Pooled[C Conn] struct {
	conn      C
	createdAt time.Time
	shared    *sharedPool[C]
	released  bool
}

// Conn returns the underlying connection. It panics if the Pooled has
// already been released, since the connection may be in use by another
// holder by then.
func (pc *Pooled[C]) Conn() C {
	if pc.released {
		panic("BUG: connpool: connection already released to the pool")
	}
	return pc.conn
}

// CreatedAt returns the time the underlying physical connection was
// opened.
func (pc *Pooled[C]) CreatedAt() time.Time {
	return pc.createdAt
}

// Release returns the connection to the pool it was acquired from.
//
// If the pool is open, the connection is young enough, and the
// AfterRelease hook (when configured) keeps it, the connection goes back
// to the idle queue for reuse; otherwise it is closed. Either way one
// waiter is woken. Releasing twice panics.
func (pc *Pooled[C]) Release(ctx context.Context) {
	if pc.released {
		panic("BUG: connpool: connection released twice")
	}
	pc.released = true
	pc.shared.release(ctx, pc.conn, pc.createdAt)
}

// Detach removes the connection from the pool and returns it. The caller
// becomes responsible for closing it. The pool slot is freed immediately,
// so the pool may open a replacement connection.
func (pc *Pooled[C]) Detach() C {
	if pc.released {
		panic("BUG: connpool: connection released twice")
	}
	pc.released = true
	pc.shared.detach()
	return pc.conn
}
