package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/authneg/internal/authcache"
	"github.com/omarluq/authneg/internal/cache"
)

// cacheInitTimeout bounds backend startup, e.g. joining an olric cluster.
const cacheInitTimeout = 30 * time.Second

// CacheService wraps the cache backend.
type CacheService struct {
	Cache cache.Cache
	log   zerolog.Logger
}

// NewCache creates the cache backend selected by configuration. Backends
// that talk to a remote store must answer a ping before startup continues.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	ctx, cancel := context.WithTimeout(context.Background(), cacheInitTimeout)
	defer cancel()

	cfg := &cfgSvc.Get().Cache
	c, err := cache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	if p, ok := c.(cache.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("cache backend %s unreachable: %w", cfg.Mode, err)
		}
	}

	return &CacheService{
		Cache: c,
		log:   loggerSvc.Logger.With().Str("component", "cache").Logger(),
	}, nil
}

// Shutdown implements do.Shutdowner.
func (c *CacheService) Shutdown() error {
	if c.Cache == nil {
		return nil
	}
	if sp, ok := c.Cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		c.log.Debug().
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Uint64("keys", stats.KeyCount).
			Uint64("bytes", stats.BytesUsed).
			Uint64("evictions", stats.Evictions).
			Msg("cache stats")
	}
	return c.Cache.Close()
}

// AuthCacheService wraps the auth scheme cache.
type AuthCacheService struct {
	Store *authcache.Store
}

// NewAuthCache creates the auth cache over the cache backend. The TTL is
// read once; a reload takes effect on restart.
func NewAuthCache(i do.Injector) (*AuthCacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	store := authcache.New(cacheSvc.Cache,
		authcache.WithTTL(cfgSvc.Get().Auth.GetCacheTTL()),
		authcache.WithLogger(*loggerSvc.Logger),
	)
	return &AuthCacheService{Store: store}, nil
}
