package connpool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is an explicit, injectable collection of named pools.
//
// Test harnesses and multi-database applications often want one pool per
// logical database, shared across packages. Rather than a hidden
// process-global table, a Registry is constructed once and passed to
// whoever needs shared pools.
type Registry[C Conn] struct {
	mu    sync.Mutex
	pools map[string]*Pool[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C Conn]() *Registry[C] {
	return &Registry[C]{pools: make(map[string]*Pool[C])}
}

// Get returns the pool registered under id, if any.
func (r *Registry[C]) Get(id string) (*Pool[C], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[id]
	return pool, ok
}

// GetOrCreate returns the pool registered under id, creating and
// registering it with create on first use. An empty id registers the pool
// under a generated unique id, which is useful for throwaway pools whose
// handle the caller keeps anyway.
//
// create runs while the registry lock is held, so concurrent callers of
// the same id observe exactly one creation.
func (r *Registry[C]) GetOrCreate(ctx context.Context, id string, create func(ctx context.Context) (*Pool[C], error)) (*Pool[C], error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[id]; ok {
		return pool, nil
	}

	pool, err := create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool %q: %w", id, err)
	}
	r.pools[id] = pool
	return pool, nil
}

// List returns the registered pool ids in sorted order.
func (r *Registry[C]) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pools))
	for id := range r.pools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll closes every registered pool and empties the registry.
func (r *Registry[C]) CloseAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, pool := range r.pools {
		pool.Close(ctx)
		delete(r.pools, id)
	}
}
