package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type redisCache struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
	lifecycle
}

var (
	_ Cache         = (*redisCache)(nil)
	_ StatsProvider = (*redisCache)(nil)
	_ Pinger        = (*redisCache)(nil)
)

// newRedisCache connects and pings once so a bad address fails at startup.
func newRedisCache(ctx context.Context, cfg *RedisConfig) (*redisCache, error) {
	log := logger().With().Str("backend", "redis").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("addr", cfg.Addr).Msg("redis: ping failed")
		if closeErr := client.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("redis: failed to close client after ping error")
		}
		return nil, err
	}

	log.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Str("key_prefix", cfg.KeyPrefix).Msg("redis cache created")
	return &redisCache{client: client, prefix: cfg.KeyPrefix, log: log}, nil
}

func (r *redisCache) key(k string) string {
	return r.prefix + k
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	defer r.leave()

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Debug().Str("key", key).Err(err).Msg("cache get error")
		return nil, err
	}
	r.log.Debug().Str("key", key).Bool("hit", true).Msg("cache get")
	return value, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.SetWithTTL(ctx, key, value, 0)
}

func (r *redisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer r.leave()

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.log.Debug().Str("key", key).Err(err).Msg("cache set error")
		return err
	}
	r.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer r.leave()

	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *redisCache) Ping(ctx context.Context) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer r.leave()

	return r.client.Ping(ctx).Err()
}

// Stats reports the client's connection pool counters; Redis keeps hit
// and miss counts server-side.
func (r *redisCache) Stats() Stats {
	if r.enter(context.Background()) != nil {
		return Stats{}
	}
	defer r.leave()

	ps := r.client.PoolStats()
	return Stats{
		Hits:   uint64(ps.Hits),
		Misses: uint64(ps.Misses),
	}
}

func (r *redisCache) Close() error {
	closed, err := r.shutdown(r.client.Close)
	if closed {
		r.log.Debug().Msg("redis cache closed")
	}
	return err
}
