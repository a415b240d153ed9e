// Package transport provides an http.RoundTripper that answers proxy and
// origin authentication challenges.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/health"
	"github.com/omarluq/authneg/internal/logging"
	"github.com/omarluq/authneg/internal/strategy"
)

// drainLimit caps how much of a discarded challenge body is read so the
// connection can be reused.
const drainLimit = 64 << 10

// Transport retries requests with auth responses until the server stops
// challenging, the exchange fails, or MaxAttempts round trips were made.
// It is safe for concurrent use.
type Transport struct {
	base          http.RoundTripper
	authenticator *auth.Authenticator
	strategy      auth.Strategy
	credentials   auth.CredentialsProvider
	cache         auth.AuthCache
	proxy         ProxyFunc
	tracker       *health.Tracker
	limiter       *rate.Limiter
	log           zerolog.Logger
	maxAttempts   int
}

var _ http.RoundTripper = (*Transport)(nil)

// New creates a Transport. Without WithBase it wraps http.DefaultTransport.
func New(opts ...Option) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		log:         zerolog.Nop(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.authenticator == nil {
		t.authenticator = auth.NewAuthenticator(auth.WithLogger(auth.NewZerologLogger(t.log)))
	}
	if t.strategy == nil {
		// The default order only names known schemes.
		t.strategy, _ = strategy.NewPreference(nil) //nolint:errcheck // cannot fail
	}
	if t.cache == nil {
		t.cache = auth.NewMemoryCache()
	}
	if t.proxy == nil {
		if ht, ok := t.base.(*http.Transport); ok && ht.Proxy != nil {
			t.proxy = ht.Proxy
		}
	}
	return t
}

// Client returns an *http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// exchange is the per-request negotiation state.
type exchange struct {
	cc        *auth.ClientContext
	target    *auth.Exchange
	proxy     *auth.Exchange
	targetHst auth.Host
	proxyHst  *auth.Host
}

func (x *exchange) failed() bool {
	return x.target.State() == auth.StateFailure || x.proxy.State() == auth.StateFailure
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := logging.WithRequestID(req.Context(), t.log, req.Header.Get("X-Request-Id"))
	log := zerolog.Ctx(ctx)

	x := &exchange{
		cc:        &auth.ClientContext{Credentials: t.credentials, Cache: t.cache},
		target:    auth.NewExchange(),
		proxy:     auth.NewExchange(),
		targetHst: auth.HostFromURL(req.URL),
	}
	if t.proxy != nil {
		proxyURL, err := t.proxy(req)
		if err != nil {
			closeBody(req)
			return nil, fmt.Errorf("transport: resolve proxy: %w", err)
		}
		if proxyURL != nil {
			h := auth.HostFromURL(proxyURL)
			x.proxyHst = &h
		}
	}

	origin := x.targetHst.String()
	done := func(error) {}
	if t.tracker != nil {
		d, err := t.tracker.Allow(origin)
		if err != nil {
			closeBody(req)
			log.Warn().Str("origin", origin).Msg("request rejected by open circuit")
			return nil, fmt.Errorf("transport: %s: %w", origin, err)
		}
		done = d
	}

	t.preempt(ctx, x.targetHst, x.target, x.cc)
	if x.proxyHst != nil {
		t.preempt(ctx, *x.proxyHst, x.proxy, x.cc)
	}

	resp, err := t.negotiate(ctx, req, x)
	switch {
	case err != nil:
		// Transport errors say nothing about the origin's auth health.
		done(nil)
	case x.failed():
		done(errAuthFailed)
	default:
		done(nil)
	}
	return resp, err
}

// preempt arms an unchallenged exchange with the scheme cached for host.
func (t *Transport) preempt(ctx context.Context, host auth.Host, ex *auth.Exchange, cc *auth.ClientContext) {
	if cc.Cache == nil || cc.Credentials == nil {
		return
	}
	cached, ok := cc.Cache.Get(ctx, host).Get()
	if !ok {
		return
	}

	log := zerolog.Ctx(ctx)
	ready, err := cached.IsResponseReady(ctx, host, cc.Credentials)
	if err != nil || !ready {
		log.Debug().Err(err).Str("host", host.String()).Str("scheme", cached.Name()).
			Msg("cached scheme not usable")
		return
	}
	log.Debug().Str("host", host.String()).Str("scheme", cached.Name()).Msg("authenticating preemptively")
	ex.Select(cached)
}

func (t *Transport) negotiate(ctx context.Context, req *http.Request, x *exchange) (*http.Response, error) {
	log := zerolog.Ctx(ctx)
	rewindable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 1; ; attempt++ {
		out, err := t.prepare(ctx, req, attempt)
		if err != nil {
			return nil, err
		}

		if x.proxyHst != nil {
			if rejected := t.attach(ctx, *x.proxyHst, auth.ChallengeProxy, out, x.proxy, x.cc); rejected {
				log.Debug().Str("proxy", x.proxyHst.String()).Msg("proxy authentication rejected")
			}
		}
		if rejected := t.attach(ctx, x.targetHst, auth.ChallengeTarget, out, x.target, x.cc); rejected {
			log.Debug().Str("host", x.targetHst.String()).Msg("target authentication rejected")
		}

		resp, err := t.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}

		retry := t.challenged(ctx, resp, x)
		if !retry {
			return resp, nil
		}
		if attempt >= t.maxAttempts || !rewindable {
			log.Debug().Int("attempts", attempt).Bool("rewindable", rewindable).
				Msg("giving up on authentication")
			return resp, nil
		}

		discard(resp)
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("transport: wait for retry: %w", err)
			}
		}
	}
}

// prepare clones req for one attempt. Retries read a fresh body from GetBody.
func (t *Transport) prepare(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	out := req.Clone(ctx)
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("transport: rewind body: %w", err)
	}
	out.Body = body
	return out, nil
}

// attach sets the auth response header for one challenge type. It reports
// whether no response could be produced.
func (t *Transport) attach(
	ctx context.Context,
	host auth.Host,
	challengeType auth.ChallengeType,
	req *http.Request,
	ex *auth.Exchange,
	cc *auth.ClientContext,
) bool {
	outcome := t.authenticator.AddAuthResponse(ctx, host, challengeType, req, ex, cc)
	return outcome.Kind == auth.OutcomeReject
}

// challenged feeds resp to both exchanges and reports whether the request
// should be sent again. Proxy challenges are handled before target ones.
func (t *Transport) challenged(ctx context.Context, resp *http.Response, x *exchange) bool {
	proxyChallenged := false
	if x.proxyHst != nil {
		proxyChallenged = t.authenticator.IsChallenged(ctx, *x.proxyHst, auth.ChallengeProxy, resp, x.proxy, x.cc)
	}
	targetChallenged := t.authenticator.IsChallenged(ctx, x.targetHst, auth.ChallengeTarget, resp, x.target, x.cc)

	switch {
	case proxyChallenged:
		return t.authenticator.PrepareAuthResponse(ctx, *x.proxyHst, auth.ChallengeProxy, resp, t.strategy, x.proxy, x.cc)
	case targetChallenged:
		return t.authenticator.PrepareAuthResponse(ctx, x.targetHst, auth.ChallengeTarget, resp, t.strategy, x.target, x.cc)
	default:
		return false
	}
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
