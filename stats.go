package connpool

import "time"

// Stat is a point-in-time snapshot of pool counters.
type Stat struct {
	// Size is the number of connections that are idle, checked out, or
	// currently being opened.
	Size int

	// Idle is the number of connections parked in the idle queue.
	Idle int

	// AcquireCount is the total number of successful acquires.
	AcquireCount int64

	// WaitCount is the total number of times an acquire had to wait for a
	// slot. WaitDuration is the cumulative time spent in those waits.
	WaitCount    int64
	WaitDuration time.Duration

	// MaxLifetimeCloses and IdleTimeoutCloses count connections discarded
	// by the age and idle-time eviction policies.
	MaxLifetimeCloses int64
	IdleTimeoutCloses int64
}

// Stat returns a snapshot of the pool's counters. Values are read
// individually and may be mutually inconsistent under concurrent load.
func (p *Pool[C]) Stat() Stat {
	return Stat{
		Size:              int(p.shared.size.Load()),
		Idle:              len(p.shared.idle),
		AcquireCount:      p.shared.acquireCount.Load(),
		WaitCount:         p.shared.waitCount.Load(),
		WaitDuration:      time.Duration(p.shared.waitNanos.Load()),
		MaxLifetimeCloses: p.shared.lifetimeClose.Load(),
		IdleTimeoutCloses: p.shared.idleClose.Load(),
	}
}
