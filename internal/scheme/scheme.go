// Package scheme implements the HTTP authentication schemes the negotiating
// client can answer: Basic, Digest, Bearer and NTLM.
package scheme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omarluq/authneg/internal/auth"
)

// Scheme names as they appear in challenges.
const (
	NameBasic  = "Basic"
	NameBearer = "Bearer"
	NameDigest = "Digest"
	NameNTLM   = "NTLM"
)

// ErrUnknownScheme is returned by New for unsupported scheme names.
var ErrUnknownScheme = errors.New("scheme: unknown scheme")

// Stateful is implemented by schemes whose negotiated parameters can be
// persisted by an out-of-process auth cache. Credentials are never part of
// the state; a restored scheme must be made ready again before use.
type Stateful interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// New creates a fresh scheme instance by name. Matching is case-insensitive.
func New(name string) (auth.Scheme, error) {
	switch strings.ToLower(name) {
	case "basic":
		return NewBasic(), nil
	case "bearer":
		return NewBearer(), nil
	case "digest":
		return NewDigest(), nil
	case "ntlm":
		return NewNTLM(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownScheme, name)
	}
}

// Names returns the supported scheme names.
func Names() []string {
	return []string{NameBasic, NameBearer, NameDigest, NameNTLM}
}

// Supported reports whether New accepts name.
func Supported(name string) bool {
	_, err := New(name)
	return err == nil
}

// lookupCredentials asks the provider for credentials matching the scope of
// a challenge. Credentials without a user name are treated as absent.
func lookupCredentials(
	ctx context.Context,
	provider auth.CredentialsProvider,
	host auth.Host,
	realm string,
	scheme string,
) (auth.Credentials, bool) {
	if provider == nil {
		return auth.Credentials{}, false
	}
	creds, ok := provider.Credentials(ctx, auth.Scope{Host: host, Realm: realm, Scheme: scheme}).Get()
	if !ok || creds.Username == "" {
		return auth.Credentials{}, false
	}
	return creds, true
}

// quote renders s as an HTTP quoted-string.
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
