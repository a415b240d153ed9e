package cache

import (
	"context"
	"time"
)

// noopCache backs ModeDisabled: every Get misses and every write is dropped.
type noopCache struct {
	lifecycle
}

var _ Cache = (*noopCache)(nil)

func newNoopCache() *noopCache {
	log := logger()
	log.Debug().Str("backend", "noop").Msg("noop cache created (caching disabled)")
	return &noopCache{}
}

func (n *noopCache) Get(ctx context.Context, _ string) ([]byte, error) {
	if err := n.enter(ctx); err != nil {
		return nil, err
	}
	n.leave()
	return nil, ErrNotFound
}

func (n *noopCache) Set(ctx context.Context, key string, value []byte) error {
	return n.SetWithTTL(ctx, key, value, 0)
}

func (n *noopCache) SetWithTTL(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	if err := n.enter(ctx); err != nil {
		return err
	}
	n.leave()
	return nil
}

func (n *noopCache) Delete(ctx context.Context, _ string) error {
	if err := n.enter(ctx); err != nil {
		return err
	}
	n.leave()
	return nil
}

func (n *noopCache) Close() error {
	_, err := n.shutdown(func() error { return nil })
	return err
}
