package connpool

import (
	"context"
	"fmt"
	"time"
)

// Default values applied by Config.normalize. See the field documentation
// on Config for how zero and negative values are interpreted.
const (
	DefaultMaxConnections = 10
	DefaultAcquireTimeout = 60 * time.Second
	DefaultIdleTimeout    = 10 * time.Minute
	DefaultMaxLifetime    = 30 * time.Minute
)

// Conn is the capability the pool requires from a pooled connection.
//
// Close is called best-effort when the pool discards a connection.
// Ping is the default liveness check run before a connection popped from
// the idle queue is handed to a caller (see Config.BeforeAcquire and
// Config.SkipPingOnAcquire).
type Conn interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Connector opens new physical connections for the pool.
//
// A Connector carries its own database-specific dial parameters; the pool
// treats it as opaque and calls Connect once per granted connect permit.
type Connector[C Conn] interface {
	Connect(ctx context.Context) (C, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc[C Conn] func(ctx context.Context) (C, error)

func (f ConnectorFunc[C]) Connect(ctx context.Context) (C, error) {
	return f(ctx)
}

// Config holds the configuration for creating a connection pool.
type Config[C Conn] struct {
	// Connector opens new physical connections. Required.
	Connector Connector[C]

	// MaxConnections is the hard cap on the number of connections that are
	// live or being created at any moment. Defaults to DefaultMaxConnections.
	MaxConnections int

	// MinConnections is the number of connections eagerly opened by
	// Connect (at least one is always opened there). Default 0.
	MinConnections int

	// AcquireTimeout bounds how long Acquire and AcquireBlocking wait for a
	// connection. Zero means DefaultAcquireTimeout; a negative value means
	// wait indefinitely.
	AcquireTimeout time.Duration

	// IdleTimeout is the maximum time a connection may sit unused in the
	// idle queue before being discarded on the next pop. Zero means
	// DefaultIdleTimeout; a negative value disables idle eviction.
	IdleTimeout time.Duration

	// MaxLifetime is the maximum age of a connection. Connections older
	// than this are discarded instead of being returned to the idle queue.
	// Zero means DefaultMaxLifetime; a negative value disables lifetime
	// eviction.
	MaxLifetime time.Duration

	// AfterConnect is called on every newly opened connection before it is
	// handed to the caller. If it returns an error the connection is
	// closed, the slot is freed, and the error is returned from acquire.
	AfterConnect func(ctx context.Context, conn C) error

	// BeforeAcquire is called on a connection popped from the idle queue
	// before it is handed to the caller. If it returns an error the
	// connection is discarded and the acquire loop retries with a fresh
	// connection. Setting BeforeAcquire overrides the default ping check.
	BeforeAcquire func(ctx context.Context, conn C) error

	// AfterRelease is called when a connection is released back to the
	// pool. Returning false discards the connection instead of returning
	// it to the idle queue.
	AfterRelease func(conn C) bool

	// SkipPingOnAcquire disables the default Conn.Ping liveness check that
	// runs when BeforeAcquire is nil.
	SkipPingOnAcquire bool
}

// Validate checks if the configuration is valid.
func (c *Config[C]) Validate() error {
	if c.Connector == nil {
		return fmt.Errorf("Connector is required")
	}

	if c.MaxConnections < 0 {
		return fmt.Errorf("MaxConnections must not be negative, got %d", c.MaxConnections)
	}

	if c.MinConnections < 0 {
		return fmt.Errorf("MinConnections must not be negative, got %d", c.MinConnections)
	}

	max := c.MaxConnections
	if max == 0 {
		max = DefaultMaxConnections
	}
	if c.MinConnections > max {
		return fmt.Errorf("MinConnections (%d) must not exceed MaxConnections (%d)", c.MinConnections, max)
	}

	return nil
}

// normalize returns a copy of the config with defaults applied.
func (c *Config[C]) normalize() Config[C] {
	out := *c

	if out.MaxConnections == 0 {
		out.MaxConnections = DefaultMaxConnections
	}
	if out.AcquireTimeout == 0 {
		out.AcquireTimeout = DefaultAcquireTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = DefaultIdleTimeout
	}
	if out.MaxLifetime == 0 {
		out.MaxLifetime = DefaultMaxLifetime
	}

	return out
}
