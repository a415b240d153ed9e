// Package auth implements client-side HTTP authentication negotiation.
//
// The Authenticator inspects each response from an origin server or proxy,
// decides whether it is an authentication challenge, drives a per-target
// Exchange through its handshake states, and attaches Authorization or
// Proxy-Authorization headers to retried requests. Schemes, credentials,
// scheme preference and the auth cache are supplied by the caller.
package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"github.com/omarluq/authneg/internal/challenge"
)

// ChallengeType tells whether a challenge came from the origin server or a proxy.
type ChallengeType int

const (
	// ChallengeTarget is an origin server challenge (401, WWW-Authenticate).
	ChallengeTarget ChallengeType = iota
	// ChallengeProxy is a proxy challenge (407, Proxy-Authenticate).
	ChallengeProxy
)

// StatusCode returns the response status that signals this challenge type.
func (c ChallengeType) StatusCode() int {
	switch c {
	case ChallengeTarget:
		return http.StatusUnauthorized
	case ChallengeProxy:
		return http.StatusProxyAuthRequired
	default:
		panic(fmt.Sprintf("auth: unexpected challenge type %d", int(c)))
	}
}

// ChallengeHeader returns the response header carrying challenges.
func (c ChallengeType) ChallengeHeader() string {
	if c == ChallengeProxy {
		return "Proxy-Authenticate"
	}
	return "WWW-Authenticate"
}

// ResponseHeader returns the request header carrying the auth response.
func (c ChallengeType) ResponseHeader() string {
	if c == ChallengeProxy {
		return "Proxy-Authorization"
	}
	return "Authorization"
}

func (c ChallengeType) String() string {
	switch c {
	case ChallengeTarget:
		return "target"
	case ChallengeProxy:
		return "proxy"
	default:
		return "unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// Host identifies an authentication target: URI scheme, host name and port.
// It is the key of the auth cache.
type Host struct {
	Scheme   string
	Hostname string
	Port     int
}

// NewHost creates a Host, normalizing case and filling in the default port
// for http and https when port is zero.
func NewHost(scheme, hostname string, port int) Host {
	scheme = strings.ToLower(scheme)
	if scheme == "" {
		scheme = "http"
	}
	if port == 0 {
		switch scheme {
		case "https":
			port = 443
		default:
			port = 80
		}
	}
	return Host{
		Scheme:   scheme,
		Hostname: strings.ToLower(hostname),
		Port:     port,
	}
}

// HostFromURL derives the Host of a request URL.
func HostFromURL(u *url.URL) Host {
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		port = 0
	}
	return NewHost(u.Scheme, u.Hostname(), port)
}

// HostPort returns host:port, bracketing IPv6 literals.
func (h Host) HostPort() string {
	return net.JoinHostPort(h.Hostname, strconv.Itoa(h.Port))
}

// String returns scheme://host:port.
func (h Host) String() string {
	return h.Scheme + "://" + h.HostPort()
}

// ChallengeMap holds the challenges of one response keyed by lower-cased
// scheme name.
type ChallengeMap map[string]challenge.Challenge

// Lookup returns the challenge for the named scheme, ignoring case.
func (m ChallengeMap) Lookup(scheme string) (challenge.Challenge, bool) {
	ch, ok := m[strings.ToLower(scheme)]
	return ch, ok
}

// Credentials are the secrets a scheme may use to answer a challenge.
type Credentials struct {
	Username    string
	Password    string
	Domain      string
	Workstation string
	Token       string
}

// Scope narrows a credentials lookup. Empty fields match anything.
type Scope struct {
	Realm  string
	Scheme string
	Host   Host
}

// CredentialsProvider looks up credentials for a scope.
type CredentialsProvider interface {
	Credentials(ctx context.Context, scope Scope) mo.Option[Credentials]
}

// Scheme is one authentication scheme instance. Instances carry negotiation
// state and belong to a single Exchange.
type Scheme interface {
	// Name returns the scheme name, e.g. "Basic".
	Name() string

	// ProcessChallenge feeds a server challenge into the scheme.
	// Returns *MalformedChallengeError if the challenge is unusable.
	ProcessChallenge(ctx context.Context, ch challenge.Challenge) error

	// IsChallengeComplete reports whether the handshake has terminated.
	IsChallengeComplete() bool

	// IsResponseReady reports whether a response can be produced with the
	// credentials available for host.
	IsResponseReady(ctx context.Context, host Host, creds CredentialsProvider) (bool, error)

	// GenerateAuthResponse returns the header value for req.
	// Returns *AuthenticationError on failure.
	GenerateAuthResponse(ctx context.Context, host Host, req *http.Request) (string, error)

	// IsConnectionBased reports whether authentication is bound to the
	// underlying connection rather than to each request.
	IsConnectionBased() bool
}

// AuthCache maps hosts to schemes that authenticated successfully.
// Implementations must be safe for concurrent use.
type AuthCache interface {
	Get(ctx context.Context, host Host) mo.Option[Scheme]
	Put(ctx context.Context, host Host, scheme Scheme)
	Remove(ctx context.Context, host Host)
}

// Strategy ranks candidate schemes for the challenges of a response.
type Strategy interface {
	Select(ctx context.Context, challengeType ChallengeType, challenges ChallengeMap) []Scheme
}

// ClientContext carries the collaborators shared by one client session.
type ClientContext struct {
	Credentials CredentialsProvider
	Cache       AuthCache
}
