// Package credentials resolves the secrets used to answer authentication
// challenges.
package credentials

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"golang.org/x/oauth2"

	"github.com/omarluq/authneg/internal/auth"
)

// AnyPort matches every port in a Pattern.
const AnyPort = 0

// Pattern scopes an Entry. Empty strings and AnyPort match anything.
// Host and Scheme compare case-insensitively; Realm is exact.
type Pattern struct {
	Host   string
	Realm  string
	Scheme string
	Port   int
}

// match returns -1 when the pattern excludes scope, otherwise a score
// where a more specific pattern scores higher. Host outweighs port, port
// outweighs realm, and realm outweighs scheme.
func (p Pattern) match(scope auth.Scope) int {
	score := 0
	if p.Scheme != "" {
		if !strings.EqualFold(p.Scheme, scope.Scheme) {
			return -1
		}
		score++
	}
	if p.Realm != "" {
		if p.Realm != scope.Realm {
			return -1
		}
		score += 2
	}
	if p.Port != AnyPort {
		if p.Port != scope.Host.Port {
			return -1
		}
		score += 4
	}
	if p.Host != "" {
		if !strings.EqualFold(p.Host, scope.Host.Hostname) {
			return -1
		}
		score += 8
	}
	return score
}

// Entry is one set of credentials and the scope it applies to. When Tokens
// is set its current access token replaces Credentials.Token.
type Entry struct {
	Tokens      oauth2.TokenSource
	Credentials auth.Credentials
	Pattern     Pattern
}

// Store is an immutable list of entries. The most specific matching entry
// wins; among equally specific entries the first one added wins.
type Store struct {
	log     zerolog.Logger
	entries []Entry
}

var _ auth.CredentialsProvider = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for token source failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l.With().Str("component", "credentials").Logger()
	}
}

// NewStore creates a Store from entries.
func NewStore(entries []Entry, opts ...Option) *Store {
	s := &Store{
		log:     zerolog.Nop(),
		entries: append([]Entry(nil), entries...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Credentials returns the best match for scope. An entry whose token
// source fails yields None rather than falling back to a weaker match.
func (s *Store) Credentials(_ context.Context, scope auth.Scope) mo.Option[auth.Credentials] {
	best, bestScore := -1, -1
	for i := range s.entries {
		if score := s.entries[i].Pattern.match(scope); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return mo.None[auth.Credentials]()
	}

	e := &s.entries[best]
	creds := e.Credentials
	if e.Tokens != nil {
		tok, err := e.Tokens.Token()
		if err != nil {
			s.log.Warn().Err(err).
				Str("host", scope.Host.String()).
				Str("scheme", scope.Scheme).
				Msg("failed to obtain access token")
			return mo.None[auth.Credentials]()
		}
		creds.Token = tok.AccessToken
	}
	return mo.Some(creds)
}

// Reloadable serves credentials from a Store that can be replaced while
// requests are in flight.
type Reloadable struct {
	ptr atomic.Pointer[Store]
}

var _ auth.CredentialsProvider = (*Reloadable)(nil)

// NewReloadable wraps initial.
func NewReloadable(initial *Store) *Reloadable {
	r := &Reloadable{}
	r.ptr.Store(initial)
	return r
}

// Swap replaces the current store.
func (r *Reloadable) Swap(s *Store) {
	r.ptr.Store(s)
}

// Current returns the current store.
func (r *Reloadable) Current() *Store {
	return r.ptr.Load()
}

// Credentials delegates to the current store.
func (r *Reloadable) Credentials(ctx context.Context, scope auth.Scope) mo.Option[auth.Credentials] {
	return r.Current().Credentials(ctx, scope)
}
