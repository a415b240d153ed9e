package scheme

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/challenge"
)

// Basic implements RFC 7617 Basic authentication.
type Basic struct {
	creds    *auth.Credentials
	realm    string
	mu       sync.Mutex
	complete bool
}

var (
	_ auth.Scheme = (*Basic)(nil)
	_ Stateful    = (*Basic)(nil)
)

// NewBasic creates a Basic scheme.
func NewBasic() *Basic {
	return &Basic{}
}

// Name implements auth.Scheme.
func (b *Basic) Name() string { return NameBasic }

// Realm returns the realm of the last processed challenge.
func (b *Basic) Realm() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realm
}

// ProcessChallenge records the realm. UTF-8 is the only charset RFC 7617
// allows a server to announce.
func (b *Basic) ProcessChallenge(_ context.Context, ch challenge.Challenge) error {
	if cs := ch.Param("charset"); cs != "" && !strings.EqualFold(cs, "utf-8") {
		return auth.NewMalformedChallengeError(NameBasic, "unsupported charset "+cs)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.realm = ch.Param("realm")
	b.complete = true
	return nil
}

// IsChallengeComplete implements auth.Scheme. Basic is single round.
func (b *Basic) IsChallengeComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

// IsResponseReady looks up credentials for the challenged realm.
func (b *Basic) IsResponseReady(ctx context.Context, host auth.Host, provider auth.CredentialsProvider) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := lookupCredentials(ctx, provider, host, b.realm, NameBasic)
	if !ok {
		return false, nil
	}
	if strings.Contains(creds.Username, ":") {
		return false, auth.NewAuthenticationError(NameBasic, "user name must not contain a colon")
	}
	b.creds = &creds
	return true, nil
}

// GenerateAuthResponse returns "Basic base64(user:password)".
func (b *Basic) GenerateAuthResponse(_ context.Context, _ auth.Host, _ *http.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.creds == nil {
		return "", auth.NewAuthenticationError(NameBasic, "credentials not set")
	}
	raw := b.creds.Username + ":" + b.creds.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// IsConnectionBased implements auth.Scheme.
func (b *Basic) IsConnectionBased() bool { return false }

type basicState struct {
	Realm    string `json:"realm"`
	Complete bool   `json:"complete"`
}

// MarshalState implements Stateful.
func (b *Basic) MarshalState() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return json.Marshal(basicState{Realm: b.realm, Complete: b.complete})
}

// UnmarshalState implements Stateful.
func (b *Basic) UnmarshalState(data []byte) error {
	var st basicState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("scheme: decode basic state: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.realm = st.Realm
	b.complete = st.Complete
	b.creds = nil
	return nil
}
