package auth

import (
	"context"
	"sync"

	"github.com/samber/mo"
)

// MemoryCache is an in-process AuthCache. It keeps scheme instances as-is,
// so a cached scheme is shared by later exchanges for the same host.
type MemoryCache struct {
	entries map[Host]Scheme
	mu      sync.RWMutex
}

var _ AuthCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Host]Scheme)}
}

// Get returns the cached scheme for host.
func (c *MemoryCache) Get(_ context.Context, host Host) mo.Option[Scheme] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[host]
	if !ok {
		return mo.None[Scheme]()
	}
	return mo.Some(s)
}

// Put stores scheme for host, replacing any previous entry.
func (c *MemoryCache) Put(_ context.Context, host Host, scheme Scheme) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[host] = scheme
}

// Remove deletes the entry for host.
func (c *MemoryCache) Remove(_ context.Context, host Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, host)
}

// Len returns the number of cached hosts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
