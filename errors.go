package connpool

import "errors"

var (
	// ErrClosed is returned by Acquire and its variants after the pool has
	// been closed. It is terminal: once observed, no future acquire on the
	// same pool can succeed.
	ErrClosed = errors.New("connpool: pool is closed")

	// ErrAcquireTimedOut is returned when the configured (or per-call)
	// acquire timeout elapses before a connection becomes available.
	// The caller may retry.
	ErrAcquireTimedOut = errors.New("connpool: timed out acquiring a connection")
)
