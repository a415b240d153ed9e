// Package challenge parses WWW-Authenticate and Proxy-Authenticate header
// values into structured challenges (RFC 7235 section 2.1).
//
// A single header value may carry several challenges:
//
//	Basic realm="files", Digest realm="files", nonce="abc", qop="auth"
//
// Each challenge has a scheme token followed by either a token68 blob
// (NTLM, Negotiate) or a comma separated list of auth-params.
package challenge

import (
	"fmt"
	"sort"
	"strings"
)

// Challenge is one server-issued authentication directive.
type Challenge struct {
	// Params holds auth-params keyed by lower-cased name.
	Params map[string]string
	// Scheme is the scheme name as sent by the server.
	Scheme string
	// Token68 holds the opaque blob for schemes that do not use auth-params.
	Token68 string
}

// New creates a Challenge with the given scheme and params.
// Param names are lower-cased.
func New(scheme string, params map[string]string) Challenge {
	ch := Challenge{Scheme: scheme, Params: make(map[string]string, len(params))}
	for k, v := range params {
		ch.Params[strings.ToLower(k)] = v
	}
	return ch
}

// Param returns the named auth-param. Lookup is case-insensitive.
func (c Challenge) Param(name string) string {
	if c.Params == nil {
		return ""
	}
	return c.Params[strings.ToLower(name)]
}

// HasParam reports whether the named auth-param is present.
func (c Challenge) HasParam(name string) bool {
	if c.Params == nil {
		return false
	}
	_, ok := c.Params[strings.ToLower(name)]
	return ok
}

// Key returns the lower-cased scheme name used as a map key.
func (c Challenge) Key() string {
	return strings.ToLower(c.Scheme)
}

// String renders the challenge in header form with params sorted by name.
func (c Challenge) String() string {
	var b strings.Builder
	b.WriteString(c.Scheme)
	if c.Token68 != "" {
		b.WriteByte(' ')
		b.WriteString(c.Token68)
		return b.String()
	}
	if len(c.Params) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(c.Params))
	for k := range c.Params {
		names = append(names, k)
	}
	sort.Strings(names)

	for i, k := range names {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", k, quote(c.Params[k]))
	}
	return b.String()
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// ParseError is returned when a header value does not follow the challenge
// grammar.
type ParseError struct {
	Value  string
	Reason string
	Pos    int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("challenge: %s at position %d in %q", e.Reason, e.Pos, e.Value)
}
