package connpool

// NumWaiters returns the number of callers queued on the wait list.
func (p *Pool[C]) NumWaiters() int {
	return int(p.shared.waiters.count.Load())
}

// NumIdle returns the number of connections in the idle queue.
func (p *Pool[C]) NumIdle() int {
	return len(p.shared.idle)
}
