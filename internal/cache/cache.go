// Package cache is the byte store behind the persistent auth cache.
//
// Backends:
//   - single (Ristretto): in-process, for one client process
//   - ha (Olric): embedded node or external cluster, shared by many processes
//   - redis (go-redis): an external Redis server
//   - disabled (Noop): stores nothing
//
// Usage:
//
//	c, err := cache.New(ctx, &cache.Config{
//		Mode:      cache.ModeSingle,
//		Ristretto: cache.DefaultRistrettoConfig(),
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.SetWithTTL(ctx, "authneg:https://api.example.com:443", state, time.Hour)
//	data, err := c.Get(ctx, "authneg:https://api.example.com:443")
//	if errors.Is(err, cache.ErrNotFound) {
//		// miss
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a concurrent byte store with optional expiry.
type Cache interface {
	// Get returns ErrNotFound for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value with no expiration.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithTTL stores value until ttl elapses.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend. Every later call returns ErrClosed.
	// Close is idempotent.
	Close() error
}

// Stats are backend counters, where the backend keeps them.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	BytesUsed uint64 `json:"bytes_used"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by backends that report Stats.
type StatsProvider interface {
	Stats() Stats
}

// Pinger is implemented by backends that talk to a remote store.
//
//	if p, ok := c.(cache.Pinger); ok {
//		if err := p.Ping(ctx); err != nil {
//			// store unreachable
//		}
//	}
type Pinger interface {
	Ping(ctx context.Context) error
}
