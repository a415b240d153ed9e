package scheme

import (
	"context"
	"net/http"
	"sync"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/challenge"
)

// Bearer implements RFC 6750 bearer token authentication. The token comes
// from the Token field of the looked-up credentials.
type Bearer struct {
	realm    string
	token    string
	mu       sync.Mutex
	complete bool
}

var _ auth.Scheme = (*Bearer)(nil)

// NewBearer creates a Bearer scheme.
func NewBearer() *Bearer {
	return &Bearer{}
}

// Name implements auth.Scheme.
func (b *Bearer) Name() string { return NameBearer }

// ProcessChallenge records the realm.
func (b *Bearer) ProcessChallenge(_ context.Context, ch challenge.Challenge) error {
	if ch.Token68 != "" {
		return auth.NewMalformedChallengeError(NameBearer, "unexpected token68 in challenge")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.realm = ch.Param("realm")
	b.complete = true
	return nil
}

// IsChallengeComplete implements auth.Scheme.
func (b *Bearer) IsChallengeComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

// IsResponseReady reports whether a token is available for the realm.
func (b *Bearer) IsResponseReady(ctx context.Context, host auth.Host, provider auth.CredentialsProvider) (bool, error) {
	if provider == nil {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := provider.Credentials(ctx, auth.Scope{Host: host, Realm: b.realm, Scheme: NameBearer}).Get()
	if !ok || creds.Token == "" {
		return false, nil
	}
	b.token = creds.Token
	return true, nil
}

// GenerateAuthResponse returns "Bearer <token>".
func (b *Bearer) GenerateAuthResponse(_ context.Context, _ auth.Host, _ *http.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.token == "" {
		return "", auth.NewAuthenticationError(NameBearer, "token not set")
	}
	return "Bearer " + b.token, nil
}

// IsConnectionBased implements auth.Scheme.
func (b *Bearer) IsConnectionBased() bool { return false }
