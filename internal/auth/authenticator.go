package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/omarluq/authneg/internal/challenge"
)

// cachableSchemes lists single-round schemes whose successful instances may
// be reused preemptively.
var cachableSchemes = []string{"basic", "digest"}

// OutcomeKind classifies the result of AddAuthResponse.
type OutcomeKind int

const (
	// OutcomeNoAction means no header was needed.
	OutcomeNoAction OutcomeKind = iota
	// OutcomeContinue means an auth header was attached to the request.
	OutcomeContinue
	// OutcomeReject means authentication cannot proceed; no header attached.
	OutcomeReject
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoAction:
		return "no_action"
	case OutcomeContinue:
		return "continue"
	case OutcomeReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Outcome is the result of AddAuthResponse.
type Outcome struct {
	// Header is the attached header value when Kind is OutcomeContinue.
	Header string
	Kind   OutcomeKind
}

// Continue returns an outcome carrying an attached header value.
func Continue(header string) Outcome { return Outcome{Kind: OutcomeContinue, Header: header} }

// Reject returns an outcome for a request that must not be authenticated.
func Reject() Outcome { return Outcome{Kind: OutcomeReject} }

// NoAction returns an outcome for a request that needs no auth header.
func NoAction() Outcome { return Outcome{Kind: OutcomeNoAction} }

// Authenticator drives authentication exchanges. It holds no per-request
// state and is safe for concurrent use; all mutable state lives in the
// Exchange and ClientContext passed to each call.
type Authenticator struct {
	log    Logger
	parser *challenge.Parser
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger. Default discards everything.
func WithLogger(l Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(opts ...Option) *Authenticator {
	a := &Authenticator{
		log:    NopLogger(),
		parser: challenge.NewParser(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsChallenged reports whether resp is an authentication challenge of the
// given type and records the outcome of the previous auth response.
//
// A challenge after SUCCESS evicts the host from the auth cache but leaves the
// exchange state alone; PrepareAuthResponse resets it. A non-challenge after
// CHALLENGED or HANDSHAKE means the credentials were accepted.
func (a *Authenticator) IsChallenged(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	resp *http.Response,
	exchange *Exchange,
	cc *ClientContext,
) bool {
	challengeCode := challengeType.StatusCode()

	if resp.StatusCode == challengeCode {
		a.log.Debug("authentication required", "host", host.String(), "type", challengeType.String())
		if exchange.State() == StateSuccess {
			a.clearCache(ctx, host, cc)
		}
		return true
	}

	switch exchange.State() {
	case StateChallenged, StateHandshake:
		if exchange.Scheme() == nil {
			// Options were never tried, so nothing was accepted.
			exchange.Reset()
			break
		}
		a.log.Debug("authentication succeeded", "host", host.String(), "scheme", exchange.Scheme().Name())
		exchange.SetState(StateSuccess)
		a.updateCache(ctx, host, exchange.Scheme(), cc)
	case StateSuccess:
	default:
		exchange.SetState(StateUnchallenged)
	}
	return false
}

// PrepareAuthResponse processes the challenges in resp and advances the
// exchange. It returns true when the request should be retried with an auth
// response produced by AddAuthResponse.
func (a *Authenticator) PrepareAuthResponse(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	resp *http.Response,
	strategy Strategy,
	exchange *Exchange,
	cc *ClientContext,
) bool {
	a.log.Debug("authentication requested", "host", host.String(), "type", challengeType.String())

	// FAILURE is terminal for the exchange, whatever the response carries.
	if exchange.State() == StateFailure {
		return false
	}

	challenges := a.collectChallenges(resp.Header.Values(challengeType.ChallengeHeader()))
	if len(challenges) == 0 {
		a.log.Debug("response contains no valid authentication challenges", "host", host.String())
		a.clearCache(ctx, host, cc)
		exchange.Reset()
		return false
	}

	switch exchange.State() {
	case StateFailure:
		return false
	case StateSuccess:
		exchange.Reset()
	case StateChallenged, StateHandshake:
		scheme := exchange.mustScheme()
		ch, ok := challenges.Lookup(scheme.Name())
		if !ok {
			// The server no longer offers this scheme; pick another one.
			exchange.Reset()
			break
		}

		a.log.Debug("authorization challenge processed", "scheme", scheme.Name())
		if err := scheme.ProcessChallenge(ctx, ch); err != nil {
			a.log.Warn(err.Error(), "scheme", scheme.Name())
			a.clearCache(ctx, host, cc)
			exchange.Reset()
			return false
		}
		if scheme.IsChallengeComplete() {
			a.log.Debug("authentication failed", "host", host.String(), "scheme", scheme.Name())
			a.clearCache(ctx, host, cc)
			exchange.Reset()
			exchange.SetState(StateFailure)
			return false
		}
		exchange.SetState(StateHandshake)
		return true
	case StateUnchallenged:
	}

	return a.selectSchemes(ctx, host, challengeType, challenges, strategy, exchange, cc)
}

// selectSchemes asks the strategy for candidates and queues those that can
// answer their challenge with the available credentials.
func (a *Authenticator) selectSchemes(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	challenges ChallengeMap,
	strategy Strategy,
	exchange *Exchange,
	cc *ClientContext,
) bool {
	candidates := strategy.Select(ctx, challengeType, challenges)
	if cc == nil || cc.Credentials == nil {
		a.log.Debug("credentials provider not set in the context")
		return false
	}

	options := make([]Scheme, 0, len(candidates))
	for _, scheme := range candidates {
		ch, ok := challenges.Lookup(scheme.Name())
		if !ok {
			continue
		}
		if err := scheme.ProcessChallenge(ctx, ch); err != nil {
			a.log.Warn(err.Error(), "scheme", scheme.Name())
			continue
		}
		ready, err := scheme.IsResponseReady(ctx, host, cc.Credentials)
		if err != nil {
			a.log.Warn(err.Error(), "scheme", scheme.Name())
			continue
		}
		if ready {
			options = append(options, scheme)
		}
	}

	if len(options) == 0 {
		return false
	}

	a.log.Debug("selected authentication options",
		"host", host.String(),
		"options", lo.Map(options, func(s Scheme, _ int) string { return s.Name() }),
	)
	exchange.Reset()
	exchange.SetState(StateChallenged)
	exchange.SetOptions(options)
	return true
}

// AddAuthResponse attaches an auth response header to req according to the
// exchange state. In CHALLENGED the pending options are tried in order until
// one produces a response.
func (a *Authenticator) AddAuthResponse(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	req *http.Request,
	exchange *Exchange,
	_ *ClientContext,
) Outcome {
	switch exchange.State() {
	case StateFailure:
		return Reject()
	case StateSuccess:
		scheme := exchange.mustScheme()
		if scheme.IsConnectionBased() {
			return NoAction()
		}
		return a.respond(ctx, host, challengeType, req, scheme)
	case StateHandshake:
		return a.respond(ctx, host, challengeType, req, exchange.mustScheme())
	case StateChallenged:
		if options := exchange.takeOptions(); len(options) > 0 {
			return a.respondWithOptions(ctx, host, challengeType, req, exchange, options)
		}
		return a.respond(ctx, host, challengeType, req, exchange.mustScheme())
	case StateUnchallenged:
		if scheme := exchange.Scheme(); scheme != nil {
			return a.respond(ctx, host, challengeType, req, scheme)
		}
		return NoAction()
	default:
		panic(&InvariantError{Message: "unknown exchange state " + exchange.State().String()})
	}
}

func (a *Authenticator) respondWithOptions(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	req *http.Request,
	exchange *Exchange,
	options []Scheme,
) Outcome {
	for _, scheme := range options {
		exchange.Select(scheme)
		a.log.Debug("generating response to an authentication challenge", "scheme", scheme.Name())

		value, err := scheme.GenerateAuthResponse(ctx, host, req)
		if err != nil {
			a.log.Warn("authentication error", "scheme", scheme.Name(), "error", err.Error())
			continue
		}
		req.Header.Set(challengeType.ResponseHeader(), value)
		return Continue(value)
	}
	return Reject()
}

func (a *Authenticator) respond(
	ctx context.Context,
	host Host,
	challengeType ChallengeType,
	req *http.Request,
	scheme Scheme,
) Outcome {
	value, err := scheme.GenerateAuthResponse(ctx, host, req)
	if err != nil {
		a.log.Error("authentication error", "scheme", scheme.Name(), "error", err.Error())
		return Reject()
	}
	req.Header.Set(challengeType.ResponseHeader(), value)
	return Continue(value)
}

// collectChallenges parses every header value. Malformed values are logged
// and skipped. The first challenge seen for a scheme wins.
func (a *Authenticator) collectChallenges(values []string) ChallengeMap {
	challenges := make(ChallengeMap)
	for _, value := range values {
		parsed, err := a.parser.Parse(value, 0)
		if err != nil {
			a.log.Warn("malformed challenge", "value", value, "error", err.Error())
			continue
		}
		for _, ch := range parsed {
			key := ch.Key()
			if _, seen := challenges[key]; !seen {
				challenges[key] = ch
			}
		}
	}
	return challenges
}

func isCachable(scheme Scheme) bool {
	return lo.Contains(cachableSchemes, strings.ToLower(scheme.Name()))
}

func (a *Authenticator) updateCache(ctx context.Context, host Host, scheme Scheme, cc *ClientContext) {
	if cc == nil || !isCachable(scheme) {
		return
	}
	if cc.Cache == nil {
		cc.Cache = NewMemoryCache()
	}
	a.log.Debug("caching auth scheme", "scheme", scheme.Name(), "host", host.String())
	cc.Cache.Put(ctx, host, scheme)
}

func (a *Authenticator) clearCache(ctx context.Context, host Host, cc *ClientContext) {
	if cc == nil || cc.Cache == nil {
		return
	}
	a.log.Debug("clearing cached auth scheme", "host", host.String())
	cc.Cache.Remove(ctx, host)
}
