package avatar

import (
	"context"
	"sync"
)

// Cache remembers validation outcomes so an identical candidate is never probed twice.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, candidate string) (Result, bool)
	Put(ctx context.Context, candidate string, res Result)
	Delete(ctx context.Context, candidates ...string)
}

// MemoryCache is an unbounded success set plus failure set, living as long as its owner.
type MemoryCache struct {
	mu        sync.RWMutex
	succeeded map[string]Result
	failed    map[string]Result
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		succeeded: make(map[string]Result),
		failed:    make(map[string]Result),
	}
}

func (c *MemoryCache) Get(_ context.Context, candidate string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if res, ok := c.succeeded[candidate]; ok {
		return res, true
	}
	res, ok := c.failed[candidate]
	return res, ok
}

func (c *MemoryCache) Put(_ context.Context, candidate string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Valid {
		delete(c.failed, candidate)
		c.succeeded[candidate] = res
	} else {
		delete(c.succeeded, candidate)
		c.failed[candidate] = res
	}
}

func (c *MemoryCache) Delete(_ context.Context, candidates ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, candidate := range candidates {
		delete(c.succeeded, candidate)
		delete(c.failed, candidate)
	}
}

// Len returns the number of successes and failures held.
func (c *MemoryCache) Len() (succeeded, failed int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.succeeded), len(c.failed)
}

// noCache never remembers anything.
type noCache struct{}

func (noCache) Get(context.Context, string) (Result, bool) { return Result{}, false }
func (noCache) Put(context.Context, string, Result)        {}
func (noCache) Delete(context.Context, ...string)          {}

// NoCache disables result caching, every validation probes again.
func NoCache() Cache { return noCache{} }
