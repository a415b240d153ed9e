// Package authcache persists successfully negotiated schemes in a
// cache.Cache so that later requests, possibly from other processes, can
// authenticate preemptively.
package authcache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/cache"
	"github.com/omarluq/authneg/internal/scheme"
)

const (
	// DefaultTTL bounds how long a cached scheme is reused.
	DefaultTTL = time.Hour

	keyPrefix = "auth:"
)

// Store implements auth.AuthCache over a cache.Cache. Only schemes that
// implement scheme.Stateful are persisted. Backend failures are logged and
// otherwise ignored: a lost entry only costs one extra challenge round.
type Store struct {
	backend cache.Cache
	log     zerolog.Logger
	ttl     time.Duration
}

var _ auth.AuthCache = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the entry lifetime. Zero stores without expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l.With().Str("component", "authcache").Logger()
	}
}

// New creates a Store writing to backend.
func New(backend cache.Cache, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     zerolog.Nop(),
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(host auth.Host) string {
	return keyPrefix + host.String()
}

// Get revives the scheme cached for host. Undecodable entries are removed.
func (s *Store) Get(ctx context.Context, host auth.Host) mo.Option[auth.Scheme] {
	key := cacheKey(host)
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.log.Warn().Err(err).Str("host", host.String()).Msg("auth cache read failed")
		}
		return mo.None[auth.Scheme]()
	}

	restored, err := decode(data)
	if err != nil {
		s.log.Warn().Err(err).Str("host", host.String()).Msg("discarding undecodable auth cache entry")
		s.delete(ctx, key, host)
		return mo.None[auth.Scheme]()
	}
	return mo.Some(restored)
}

// Put stores scheme for host. Non-stateful schemes are skipped.
func (s *Store) Put(ctx context.Context, host auth.Host, sch auth.Scheme) {
	data, err := encode(sch)
	if err != nil {
		s.log.Debug().Err(err).Str("host", host.String()).Str("scheme", sch.Name()).
			Msg("scheme not persisted")
		return
	}
	key := cacheKey(host)
	if s.ttl > 0 {
		err = s.backend.SetWithTTL(ctx, key, data, s.ttl)
	} else {
		err = s.backend.Set(ctx, key, data)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("host", host.String()).Msg("auth cache write failed")
	}
}

// Remove deletes the entry for host.
func (s *Store) Remove(ctx context.Context, host auth.Host) {
	s.delete(ctx, cacheKey(host), host)
}

func (s *Store) delete(ctx context.Context, key string, host auth.Host) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("host", host.String()).Msg("auth cache delete failed")
	}
}

var errNotStateful = errors.New("authcache: scheme does not support persistence")

// encode produces {"scheme": name, "state": <scheme state>}.
func encode(sch auth.Scheme) ([]byte, error) {
	st, ok := sch.(scheme.Stateful)
	if !ok {
		return nil, errNotStateful
	}
	state, err := st.MarshalState()
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(state) {
		return nil, errors.New("authcache: scheme state is not JSON")
	}

	doc, err := sjson.SetBytes(nil, "scheme", sch.Name())
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(doc, "state", state)
}

func decode(data []byte) (auth.Scheme, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("authcache: entry is not JSON")
	}
	name := gjson.GetBytes(data, "scheme")
	state := gjson.GetBytes(data, "state")
	if !name.Exists() || !state.Exists() {
		return nil, errors.New("authcache: entry lacks scheme or state")
	}

	sch, err := scheme.New(name.String())
	if err != nil {
		return nil, err
	}
	st, ok := sch.(scheme.Stateful)
	if !ok {
		return nil, errNotStateful
	}
	if err := st.UnmarshalState([]byte(state.Raw)); err != nil {
		return nil, err
	}
	return sch, nil
}
