package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

type ristrettoCache struct {
	cache *ristretto.Cache[string, []byte]
	log   zerolog.Logger
	lifecycle
}

var (
	_ Cache         = (*ristrettoCache)(nil)
	_ StatsProvider = (*ristrettoCache)(nil)
)

func newRistrettoCache(cfg RistrettoConfig) (*ristrettoCache, error) {
	log := logger().With().Str("backend", "ristretto").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        bufferItems,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}

	log.Debug().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Int64("buffer_items", bufferItems).
		Msg("ristretto cache created")

	return &ristrettoCache{cache: c, log: log}, nil
}

func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	defer r.leave()

	value, found := r.cache.Get(key)
	r.log.Debug().Str("key", key).Bool("hit", found).Msg("cache get")
	if !found {
		return nil, ErrNotFound
	}
	return cloneBytes(value), nil
}

func (r *ristrettoCache) Set(ctx context.Context, key string, value []byte) error {
	return r.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL waits for the write to be applied so a following Get sees it.
// A ttl of zero stores without expiration. Ristretto may reject the write
// under cost pressure; that is logged and not reported.
func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer r.leave()

	admitted := r.cache.SetWithTTL(key, cloneBytes(value), int64(len(value)), ttl)
	r.cache.Wait()
	r.log.Debug().
		Str("key", key).
		Int("size", len(value)).
		Dur("ttl", ttl).
		Bool("admitted", admitted).
		Msg("cache set")
	return nil
}

func (r *ristrettoCache) Delete(ctx context.Context, key string) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer r.leave()

	r.cache.Del(key)
	r.cache.Wait()
	r.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

func (r *ristrettoCache) Close() error {
	closed, err := r.shutdown(func() error {
		r.cache.Close()
		return nil
	})
	if closed {
		r.log.Debug().Msg("ristretto cache closed")
	}
	return err
}

func (r *ristrettoCache) Stats() Stats {
	if r.enter(context.Background()) != nil {
		return Stats{}
	}
	defer r.leave()

	m := r.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeyCount:  m.KeysAdded() - m.KeysEvicted(),
		BytesUsed: m.CostAdded() - m.CostEvicted(),
		Evictions: m.KeysEvicted(),
	}
}
