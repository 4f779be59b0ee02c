package connpool

import (
	"context"
	"fmt"
	"time"
)

// Pool is a bounded pool of reusable connections.
//
// A Pool is safe for concurrent use. Connections are acquired with
// Acquire (context-aware) or AcquireBlocking (deadline-based parking) and
// returned with Pooled.Release.
type Pool[C Conn] struct {
	shared *sharedPool[C]
}

// New creates a new pool. No connection is attempted until the first
// acquire; use Connect to validate the connector eagerly.
func New[C Conn](config *Config[C]) (*Pool[C], error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pool[C]{shared: newSharedPool(config.normalize())}, nil
}

// Connect creates a new pool and eagerly opens max(MinConnections, 1)
// connections, so that a bad connector surfaces here rather than on the
// first acquire.
func Connect[C Conn](ctx context.Context, config *Config[C]) (*Pool[C], error) {
	pool, err := New(config)
	if err != nil {
		return nil, err
	}

	n := max(pool.shared.config.MinConnections, 1)
	if err := pool.shared.initMinConnections(ctx, n); err != nil {
		pool.Close(ctx)
		return nil, fmt.Errorf("failed to open initial connections: %w", err)
	}

	return pool, nil
}

// Acquire obtains a connection from the pool, waiting until one is
// released or a slot frees up for a new connection.
//
// The configured AcquireTimeout applies; when it elapses the returned
// error is ErrAcquireTimedOut. Cancellation of ctx is reported as
// context.Canceled (or the context's cause).
func (p *Pool[C]) Acquire(ctx context.Context) (*Pooled[C], error) {
	if d := p.shared.config.AcquireTimeout; d > 0 {
		return p.AcquireTimeout(ctx, d)
	}
	return p.acquireContext(ctx)
}

// AcquireTimeout is Acquire with a per-call override of the configured
// acquire timeout.
func (p *Pool[C]) AcquireTimeout(ctx context.Context, timeout time.Duration) (*Pooled[C], error) {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrAcquireTimedOut)
	defer cancel()
	return p.acquireContext(ctx)
}

// AcquireBlocking obtains a connection without requiring a context,
// parking the calling goroutine while it waits. The configured
// AcquireTimeout applies.
func (p *Pool[C]) AcquireBlocking() (*Pooled[C], error) {
	if d := p.shared.config.AcquireTimeout; d > 0 {
		return p.AcquireBlockingTimeout(d)
	}
	return p.acquireDeadline(time.Time{})
}

// AcquireBlockingTimeout is AcquireBlocking with a per-call timeout.
func (p *Pool[C]) AcquireBlockingTimeout(timeout time.Duration) (*Pooled[C], error) {
	return p.acquireDeadline(time.Now().Add(timeout))
}

func (p *Pool[C]) acquireContext(ctx context.Context) (*Pooled[C], error) {
	return p.acquireLoop(ctx, func(w *waiter) error {
		return w.wait(ctx)
	})
}

func (p *Pool[C]) acquireDeadline(deadline time.Time) (*Pooled[C], error) {
	// connect calls and hooks on this path still take a context; derive
	// one from the same deadline so they cannot outlive the acquire.
	ctx := context.Background()
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadlineCause(ctx, deadline, ErrAcquireTimedOut)
		defer cancel()
	}

	return p.acquireLoop(ctx, func(w *waiter) error {
		if !w.waitDeadline(deadline) {
			return ErrAcquireTimedOut
		}
		return nil
	})
}

// acquireLoop drives tryAcquire to completion. The wait callback is the
// only step that differs between the context-aware and blocking paths.
func (p *Pool[C]) acquireLoop(ctx context.Context, wait func(*waiter) error) (*Pooled[C], error) {
	var permit *acquirePermit

	for {
		res := p.shared.tryAcquire(permit)
		permit = nil

		if res.step == stepWait {
			w := p.shared.waiters.enqueue()

			// A slot freed between tryAcquire and enqueue sent its wake to
			// nobody; re-check now that we are queued. Being queued entitles
			// us to bypass the waiters-empty gate, same as a woken waiter.
			res = p.shared.tryAcquire(&acquirePermit{size: &p.shared.size})
			if res.step == stepWait {
				start := time.Now()
				err := wait(w)
				p.shared.recordWait(time.Since(start))
				if err != nil {
					return nil, err
				}
				permit = &acquirePermit{size: &p.shared.size}
				continue
			}
			w.dequeue(false)
		}

		switch res.step {
		case stepAcquired:
			if !p.shared.prepareIdle(ctx, res.idle) {
				continue // connection was discarded, try again
			}
			p.shared.acquireCount.Add(1)
			return &Pooled[C]{
				conn:      res.idle.conn,
				createdAt: res.idle.createdAt,
				shared:    p.shared,
			}, nil

		case stepConnect:
			conn, createdAt, err := p.shared.connect(ctx, res.permit)
			if err != nil {
				return nil, err
			}
			p.shared.acquireCount.Add(1)
			return &Pooled[C]{conn: conn, createdAt: createdAt, shared: p.shared}, nil

		case stepClosed:
			return nil, ErrClosed
		}
	}
}

// Close shuts the pool down: all pending and future acquires fail with
// ErrClosed and every idle connection is closed. Connections currently
// checked out remain usable; they are closed when released. Close is
// idempotent.
func (p *Pool[C]) Close(ctx context.Context) {
	p.shared.close(ctx)
}

// IsClosed reports whether the pool has been closed.
func (p *Pool[C]) IsClosed() bool {
	return p.shared.isClosed()
}
