package connpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuku/connpool/internal/testutil"
)

func pushIdle(t *testing.T, p *sharedPool[*testutil.Conn], conn *testutil.Conn) {
	t.Helper()
	guard := p.tryIncrementSize()
	require.NotNil(t, guard, "pool unexpectedly at capacity")
	guard.cancel()
	p.idle <- &idleConn[*testutil.Conn]{conn: conn, createdAt: time.Now(), idleSince: time.Now()}
}

func TestTryAcquireIdleFirst(t *testing.T) {
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	conn := &testutil.Conn{ID: 1}
	pushIdle(t, p, conn)

	res := p.tryAcquire(nil)
	require.Equal(t, stepAcquired, res.step)
	assert.Same(t, conn, res.idle.conn)
	assert.Empty(t, p.idle, "pop must remove the connection from the idle queue")
}

func TestTryAcquireConnectWhenNoIdle(t *testing.T) {
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})

	res := p.tryAcquire(nil)
	require.Equal(t, stepConnect, res.step)
	require.NotNil(t, res.permit)
	assert.EqualValues(t, 1, p.size.Load())

	res.permit.guard.release()
}

func TestTryAcquireWaitAtCapacity(t *testing.T) {
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 1})
	require.NotNil(t, p.tryIncrementSize())

	res := p.tryAcquire(nil)
	assert.Equal(t, stepWait, res.step)
}

// A caller without a permit must not jump the queue while others wait,
// even when an idle connection is available. A permit (proof of a prior
// wait) bypasses that gate.
func TestTryAcquireFairnessGate(t *testing.T) {
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	pushIdle(t, p, &testutil.Conn{ID: 1})

	w := p.waiters.enqueue()
	defer w.dequeue(true)

	res := p.tryAcquire(nil)
	assert.Equal(t, stepWait, res.step, "newcomer must wait behind queued waiters")

	res = p.tryAcquire(&acquirePermit{size: &p.size})
	assert.Equal(t, stepAcquired, res.step, "permit holder may be served immediately")
}

func TestTryAcquireClosed(t *testing.T) {
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	pushIdle(t, p, &testutil.Conn{ID: 1})
	p.closed.Store(true)

	res := p.tryAcquire(nil)
	assert.Equal(t, stepClosed, res.step)
}

func TestTryAcquireForeignPermitPanics(t *testing.T) {
	p1 := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	p2 := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})

	permit := &acquirePermit{size: &p2.size}
	require.Panics(t, func() { p1.tryAcquire(permit) })
}

func TestConnectReleasesSlotOnFailure(t *testing.T) {
	connector := &testutil.Connector{}
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 1, Connector: connector})

	dialErr := errors.New("dial refused")
	connector.SetDialError(dialErr)

	res := p.tryAcquire(nil)
	require.Equal(t, stepConnect, res.step)

	_, _, err := p.connect(context.Background(), res.permit)
	require.ErrorIs(t, err, dialErr)
	assert.EqualValues(t, 0, p.size.Load(), "failed connect must free the slot")
}

func TestConnectForeignPermitPanics(t *testing.T) {
	p1 := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	p2 := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})

	guard := p2.tryIncrementSize()
	require.NotNil(t, guard)

	require.Panics(t, func() {
		_, _, _ = p1.connect(context.Background(), &connectPermit{guard: guard})
	})
}

func TestPrepareIdleEviction(t *testing.T) {
	ctx := context.Background()

	t.Run("max lifetime", func(t *testing.T) {
		p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2, MaxLifetime: time.Minute})
		conn := &testutil.Conn{ID: 1}
		guard := p.tryIncrementSize()
		require.NotNil(t, guard)
		guard.cancel()

		ic := &idleConn[*testutil.Conn]{
			conn:      conn,
			createdAt: time.Now().Add(-2 * time.Minute),
			idleSince: time.Now(),
		}
		assert.False(t, p.prepareIdle(ctx, ic))
		assert.True(t, conn.Closed())
		assert.EqualValues(t, 0, p.size.Load())
		assert.EqualValues(t, 1, p.lifetimeClose.Load())
	})

	t.Run("idle timeout", func(t *testing.T) {
		p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2, IdleTimeout: time.Minute})
		conn := &testutil.Conn{ID: 1}
		guard := p.tryIncrementSize()
		require.NotNil(t, guard)
		guard.cancel()

		ic := &idleConn[*testutil.Conn]{
			conn:      conn,
			createdAt: time.Now(),
			idleSince: time.Now().Add(-2 * time.Minute),
		}
		assert.False(t, p.prepareIdle(ctx, ic))
		assert.True(t, conn.Closed())
		assert.EqualValues(t, 1, p.idleClose.Load())
	})

	t.Run("failing ping discards", func(t *testing.T) {
		p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
		conn := &testutil.Conn{ID: 1}
		conn.SetPingError(errors.New("connection reset"))
		guard := p.tryIncrementSize()
		require.NotNil(t, guard)
		guard.cancel()

		ic := &idleConn[*testutil.Conn]{conn: conn, createdAt: time.Now(), idleSince: time.Now()}
		assert.False(t, p.prepareIdle(ctx, ic))
		assert.True(t, conn.Closed())
		assert.EqualValues(t, 0, p.size.Load())
	})

	t.Run("healthy connection kept", func(t *testing.T) {
		p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
		conn := &testutil.Conn{ID: 1}
		guard := p.tryIncrementSize()
		require.NotNil(t, guard)
		guard.cancel()

		ic := &idleConn[*testutil.Conn]{conn: conn, createdAt: time.Now(), idleSince: time.Now()}
		assert.True(t, p.prepareIdle(ctx, ic))
		assert.False(t, conn.Closed())
		assert.EqualValues(t, 1, conn.Pings())
		assert.EqualValues(t, 1, p.size.Load(), "kept connection retains its slot")
	})
}

func TestReleaseClosedPoolDiscards(t *testing.T) {
	ctx := context.Background()
	p := newTestShared(t, Config[*testutil.Conn]{MaxConnections: 2})
	conn := &testutil.Conn{ID: 1}
	guard := p.tryIncrementSize()
	require.NotNil(t, guard)
	guard.cancel()

	p.closed.Store(true)
	p.release(ctx, conn, time.Now())

	assert.True(t, conn.Closed())
	assert.Empty(t, p.idle)
	assert.EqualValues(t, 0, p.size.Load())
}
