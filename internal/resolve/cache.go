package resolve

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/abramin/compatlens/internal/entity"
)

// Caching memoizes an inner resolver per symbol object. Symbols must be
// pointers of type *T; anything else is resolved without caching. An entry is
// dropped once its symbol becomes unreachable, so the cache never keeps a
// symbol alive.
type Caching[T any] struct {
	inner   Resolver
	entries sync.Map // weak.Pointer[T] -> cached

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cached struct {
	id *entity.Identifier
}

// NewCaching wraps inner.
func NewCaching[T any](inner Resolver) *Caching[T] {
	return &Caching[T]{inner: inner}
}

func (c *Caching[T]) Resolve(ctx context.Context, sym Symbol) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := any(sym).(*T)
	if !ok || p == nil {
		return c.inner.Resolve(ctx, sym)
	}

	key := weak.Make(p)
	if v, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return v.(cached).id, nil
	}
	c.misses.Add(1)

	id, err := c.inner.Resolve(ctx, sym)
	if err != nil {
		return nil, err
	}
	if _, loaded := c.entries.LoadOrStore(key, cached{id: id}); !loaded {
		runtime.AddCleanup(p, func(k weak.Pointer[T]) { c.entries.Delete(k) }, key)
	}
	return id, nil
}

// Len returns the number of live entries.
func (c *Caching[T]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stats returns the hit and miss counts so far.
func (c *Caching[T]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
