// Package testutil provides a fake connection and connector for testing
// pool behavior without a database server.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is an in-memory connection. It records pings and closes and can be
// made to fail either on demand.
type Conn struct {
	// ID is unique per connector, in dial order starting at 1.
	ID int64

	mu       sync.Mutex
	pingErr  error
	closeErr error

	closed atomic.Bool
	pings  atomic.Int64
}

func (c *Conn) Ping(ctx context.Context) error {
	c.pings.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *Conn) Close(ctx context.Context) error {
	c.closed.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// SetPingError makes subsequent Ping calls return err.
func (c *Conn) SetPingError(err error) {
	c.mu.Lock()
	c.pingErr = err
	c.mu.Unlock()
}

// SetCloseError makes subsequent Close calls return err.
func (c *Conn) SetCloseError(err error) {
	c.mu.Lock()
	c.closeErr = err
	c.mu.Unlock()
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Pings returns the number of Ping calls.
func (c *Conn) Pings() int64 {
	return c.pings.Load()
}

// Connector dials Conns. The zero value is ready to use.
type Connector struct {
	// DialDelay is slept on every Connect, respecting the context.
	DialDelay time.Duration

	mu      sync.Mutex
	dialErr error

	nextID    atomic.Int64
	dialCount atomic.Int64
}

func (c *Connector) Connect(ctx context.Context) (*Conn, error) {
	c.dialCount.Add(1)

	if c.DialDelay > 0 {
		select {
		case <-time.After(c.DialDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	err := c.dialErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &Conn{ID: c.nextID.Add(1)}, nil
}

// SetDialError makes subsequent Connect calls fail with err. Pass nil to
// restore normal dialing.
func (c *Connector) SetDialError(err error) {
	c.mu.Lock()
	c.dialErr = err
	c.mu.Unlock()
}

// DialCount returns the number of Connect calls, including failed ones.
func (c *Connector) DialCount() int64 {
	return c.dialCount.Load()
}
