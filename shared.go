package connpool

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// sharedPool is the synchronous, execution-model-agnostic core of the
// pool. It owns the idle queue, the wait list, the size counter, and the
// closed flag. All of its state is either atomic or a concurrent queue;
// no lock is ever held across a connect call or a wait.
type sharedPool[C Conn] struct {
	config Config[C]

	// idle holds live, currently unused connections. Its capacity equals
	// MaxConnections, so a blocked push always indicates an accounting bug.
	idle chan *idleConn[C]

	waiters waitList

	// size counts connections that are idle, checked out, or being opened
	// under an unspent connect permit. Invariant: 0 <= size <= MaxConnections.
	size   atomic.Int32
	closed atomic.Bool

	acquireCount  atomic.Int64
	waitCount     atomic.Int64
	waitNanos     atomic.Int64
	lifetimeClose atomic.Int64
	idleClose     atomic.Int64
}

// idleConn wraps a live connection with the bookkeeping needed for
// idle-timeout and max-lifetime eviction.
type idleConn[C Conn] struct {
	conn      C
	createdAt time.Time
	idleSince time.Time
}

func newSharedPool[C Conn](config Config[C]) *sharedPool[C] {
	return &sharedPool[C]{
		config: config,
		idle:   make(chan *idleConn[C], config.MaxConnections),
	}
}

func (p *sharedPool[C]) isClosed() bool {
	return p.closed.Load()
}

type acquireStep int

const (
	// stepAcquired carries a connection popped from the idle queue.
	stepAcquired acquireStep = iota
	// stepConnect carries a permit to open a new physical connection.
	stepConnect
	// stepWait tells the caller to enqueue on the wait list and retry.
	stepWait
	// stepClosed tells the caller to surface ErrClosed.
	stepClosed
)

type tryAcquireResult[C Conn] struct {
	step   acquireStep
	idle   *idleConn[C]   // set when step == stepAcquired
	permit *connectPermit // set when step == stepConnect
}

// tryAcquire is the admission-control decision. permit, if non-nil, proves
// the caller already waited once and may bypass the queued-waiters check;
// passing a permit from a different pool is a programming error.
//
// Service is biased toward already-waiting callers: a caller without a
// permit only gets a connection or a connect slot when nobody is queued.
// There is no strict FIFO guarantee among waiters.
func (p *sharedPool[C]) tryAcquire(permit *acquirePermit) tryAcquireResult[C] {
	if permit != nil && permit.size != &p.size {
		panic("BUG: connpool: AcquirePermit is from a different pool")
	}

	if p.isClosed() {
		return tryAcquireResult[C]{step: stepClosed}
	}

	if permit != nil || p.waiters.isEmpty() {
		select {
		case ic := <-p.idle:
			return tryAcquireResult[C]{step: stepAcquired, idle: ic}
		default:
		}

		if guard := p.tryIncrementSize(); guard != nil {
			return tryAcquireResult[C]{step: stepConnect, permit: &connectPermit{guard: guard}}
		}
	}

	// check again so a close that raced the logic above is not turned
	// into a wait that can only end by timeout
	if p.isClosed() {
		return tryAcquireResult[C]{step: stepClosed}
	}

	return tryAcquireResult[C]{step: stepWait}
}

// tryIncrementSize bumps the size counter if it is below MaxConnections
// and the pool is open. This CAS loop is the single synchronization point
// preventing pool overrun.
func (p *sharedPool[C]) tryIncrementSize() *sizeGuard {
	for {
		if p.isClosed() {
			return nil
		}

		size := p.size.Load()
		if size >= int32(p.config.MaxConnections) {
			return nil
		}
		if p.size.CompareAndSwap(size, size+1) {
			return p.newSizeGuard()
		}
	}
}

// connect opens a new physical connection under the given permit. On any
// failure the permit's guard is released so the slot is not lost; on
// success the guard is canceled because the returned connection now
// carries the decrement responsibility (through sharedPool.release or
// Pooled.Detach).
func (p *sharedPool[C]) connect(ctx context.Context, permit *connectPermit) (conn C, createdAt time.Time, err error) {
	if !permit.guard.samePool(&p.size) {
		panic("BUG: connpool: ConnectPermit is from a different pool")
	}

	conn, err = p.config.Connector.Connect(ctx)
	if err != nil {
		permit.guard.release()
		var zero C
		return zero, time.Time{}, err
	}

	if hook := p.config.AfterConnect; hook != nil {
		if err := hook(ctx, conn); err != nil {
			p.closeConn(ctx, conn)
			permit.guard.release()
			var zero C
			return zero, time.Time{}, err
		}
	}

	permit.guard.cancel()
	return conn, time.Now(), nil
}

// prepareIdle vets a connection popped from the idle queue: eviction by
// age or idle time first, then the before-acquire check. Returns false if
// the connection was discarded, in which case the caller loops back into
// tryAcquire. Discarding releases the slot and wakes one waiter.
func (p *sharedPool[C]) prepareIdle(ctx context.Context, ic *idleConn[C]) bool {
	guard := p.newSizeGuard()

	if max := p.config.MaxLifetime; max > 0 && time.Since(ic.createdAt) >= max {
		p.lifetimeClose.Add(1)
		p.closeConn(ctx, ic.conn)
		guard.release()
		return false
	}

	if idle := p.config.IdleTimeout; idle > 0 && time.Since(ic.idleSince) >= idle {
		p.idleClose.Add(1)
		p.closeConn(ctx, ic.conn)
		guard.release()
		return false
	}

	check := p.config.BeforeAcquire
	if check == nil && !p.config.SkipPingOnAcquire {
		check = func(ctx context.Context, conn C) error { return conn.Ping(ctx) }
	}
	if check != nil {
		if err := check(ctx, ic.conn); err != nil {
			log.Printf("connpool: discarding connection, before-acquire check failed: %v", err)
			p.closeConn(ctx, ic.conn)
			guard.release()
			return false
		}
	}

	guard.cancel()
	return true
}

// release implements the checked-out half of the connection state machine:
// return to the idle queue when the pool is open and the connection is
// still worth keeping, discard otherwise. Either path accounts for the
// slot exactly once and wakes one waiter.
func (p *sharedPool[C]) release(ctx context.Context, conn C, createdAt time.Time) {
	guard := p.newSizeGuard()

	keep := !p.isClosed()
	if keep {
		if max := p.config.MaxLifetime; max > 0 && time.Since(createdAt) >= max {
			p.lifetimeClose.Add(1)
			keep = false
		}
	}
	if keep && p.config.AfterRelease != nil {
		keep = p.config.AfterRelease(conn)
	}

	if !keep {
		p.closeConn(ctx, conn)
		guard.release()
		return
	}

	ic := &idleConn[C]{conn: conn, createdAt: createdAt, idleSince: time.Now()}
	select {
	case p.idle <- ic:
	default:
		panic("BUG: connpool: idle queue overflow on release")
	}
	guard.cancel()
	p.waiters.wakeOne()

	// close may have drained the idle queue before our push landed
	if p.isClosed() {
		p.drainIdle(ctx)
	}
}

// detach removes a checked-out connection from pool accounting without
// closing it. The slot is freed and one waiter is woken.
func (p *sharedPool[C]) detach() {
	p.newSizeGuard().release()
}

// initMinConnections eagerly opens n connections and parks them in the
// idle queue. Slots that cannot be reserved (pool already at capacity,
// e.g. when two processes race through Connect) are skipped silently. A
// failed push is impossible unless the size accounting is broken.
func (p *sharedPool[C]) initMinConnections(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		guard := p.tryIncrementSize()
		if guard == nil {
			return nil
		}

		conn, createdAt, err := p.connect(ctx, &connectPermit{guard: guard})
		if err != nil {
			return err
		}

		ic := &idleConn[C]{conn: conn, createdAt: createdAt, idleSince: time.Now()}
		select {
		case p.idle <- ic:
		default:
			panic("BUG: connpool: idle queue overflow in initMinConnections")
		}
	}
	return nil
}

// close flips the closed flag, wakes every waiter so pending acquires can
// observe it, and discards all idle connections. Checked-out connections
// are discarded later, when their holders release them.
func (p *sharedPool[C]) close(ctx context.Context) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.waiters.wakeAll()
	p.drainIdle(ctx)
}

func (p *sharedPool[C]) drainIdle(ctx context.Context) {
	for {
		select {
		case ic := <-p.idle:
			p.closeConn(ctx, ic.conn)
			p.newSizeGuard().release()
		default:
			return
		}
	}
}

func (p *sharedPool[C]) closeConn(ctx context.Context, conn C) {
	if err := conn.Close(ctx); err != nil {
		log.Printf("connpool: error closing discarded connection: %v", err)
	}
}

func (p *sharedPool[C]) recordWait(d time.Duration) {
	p.waitCount.Add(1)
	p.waitNanos.Add(int64(d))
}
