package transport

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/health"
)

// DefaultMaxAttempts bounds the round trips made for one logical request.
const DefaultMaxAttempts = 5

// ProxyFunc returns the proxy for req, or nil when req goes direct.
type ProxyFunc func(req *http.Request) (*url.URL, error)

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the RoundTripper requests are sent through.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithAuthenticator replaces the default authenticator.
func WithAuthenticator(a *auth.Authenticator) Option {
	return func(t *Transport) {
		t.authenticator = a
	}
}

// WithStrategy sets the scheme preference.
func WithStrategy(s auth.Strategy) Option {
	return func(t *Transport) {
		t.strategy = s
	}
}

// WithCredentials sets the credentials provider.
func WithCredentials(p auth.CredentialsProvider) Option {
	return func(t *Transport) {
		t.credentials = p
	}
}

// WithAuthCache sets the auth cache used for preemptive authentication.
func WithAuthCache(c auth.AuthCache) Option {
	return func(t *Transport) {
		t.cache = c
	}
}

// WithProxy tells the transport which proxy a request goes through. By
// default the Proxy field of an *http.Transport base is used.
func WithProxy(p ProxyFunc) Option {
	return func(t *Transport) {
		t.proxy = p
	}
}

// WithMaxAttempts bounds the round trips per logical request. Values below 1
// are ignored.
func WithMaxAttempts(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithTracker enables per-origin circuit breaking.
func WithTracker(tr *health.Tracker) Option {
	return func(t *Transport) {
		t.tracker = tr
	}
}

// WithLimiter paces auth retries.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *Transport) {
		t.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = l.With().Str("component", "transport").Logger()
	}
}
