package scheme

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/go-ntlmssp"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/challenge"
)

type ntlmState int

const (
	ntlmUninitiated ntlmState = iota
	ntlmChallengeReceived
	ntlmType1Generated
	ntlmType2Received
	ntlmType3Generated
	ntlmFailed
)

func (s ntlmState) String() string {
	switch s {
	case ntlmUninitiated:
		return "uninitiated"
	case ntlmChallengeReceived:
		return "challenge received"
	case ntlmType1Generated:
		return "type1 generated"
	case ntlmType2Received:
		return "type2 received"
	case ntlmType3Generated:
		return "type3 generated"
	case ntlmFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NTLM implements NTLMv2 over HTTP (negotiate, challenge, authenticate).
// The authenticated identity is bound to the connection, so an NTLM
// instance is never shared between exchanges.
type NTLM struct {
	authenticate []byte
	creds        auth.Credentials
	state        ntlmState
}

var _ auth.Scheme = (*NTLM)(nil)

// NewNTLM creates an NTLM scheme.
func NewNTLM() *NTLM {
	return &NTLM{}
}

// Name implements auth.Scheme.
func (n *NTLM) Name() string { return NameNTLM }

// ProcessChallenge advances the handshake. A bare "NTLM" challenge starts
// it; a challenge carrying a token must follow our negotiate message and
// is answered with the authenticate message right away.
func (n *NTLM) ProcessChallenge(_ context.Context, ch challenge.Challenge) error {
	if ch.Token68 == "" {
		if n.state == ntlmUninitiated {
			n.state = ntlmChallengeReceived
		} else {
			n.state = ntlmFailed
		}
		return nil
	}

	if n.state < ntlmType1Generated {
		n.state = ntlmFailed
		return auth.NewMalformedChallengeError(NameNTLM, "out of sequence NTLM response message")
	}

	raw, err := base64.StdEncoding.DecodeString(ch.Token68)
	if err != nil {
		n.state = ntlmFailed
		return &auth.MalformedChallengeError{Scheme: NameNTLM, Err: fmt.Errorf("decode challenge message: %w", err)}
	}

	user, _ := splitDomainUser(n.creds)
	msg, err := ntlmssp.ProcessChallenge(raw, user, n.creds.Password, !strings.Contains(user, "@"))
	if err != nil {
		n.state = ntlmFailed
		return &auth.MalformedChallengeError{Scheme: NameNTLM, Err: err}
	}
	n.authenticate = msg
	n.state = ntlmType2Received
	return nil
}

// IsChallengeComplete reports whether the authenticate message was sent or
// the handshake failed.
func (n *NTLM) IsChallengeComplete() bool {
	return n.state == ntlmType3Generated || n.state == ntlmFailed
}

// IsResponseReady looks up credentials for the host. NTLM challenges carry
// no realm.
func (n *NTLM) IsResponseReady(ctx context.Context, host auth.Host, provider auth.CredentialsProvider) (bool, error) {
	creds, ok := lookupCredentials(ctx, provider, host, "", NameNTLM)
	if !ok {
		return false, nil
	}
	n.creds = creds
	return true, nil
}

// GenerateAuthResponse returns the next handshake message.
func (n *NTLM) GenerateAuthResponse(_ context.Context, _ auth.Host, _ *http.Request) (string, error) {
	var msg []byte
	switch n.state {
	case ntlmFailed:
		return "", auth.NewAuthenticationError(NameNTLM, "NTLM authentication failed")
	case ntlmChallengeReceived:
		_, domain := splitDomainUser(n.creds)
		negotiate, err := ntlmssp.NewNegotiateMessage(domain, n.creds.Workstation)
		if err != nil {
			return "", &auth.AuthenticationError{Scheme: NameNTLM, Err: fmt.Errorf("negotiate message: %w", err)}
		}
		msg = negotiate
		n.state = ntlmType1Generated
	case ntlmType2Received:
		msg = n.authenticate
		n.state = ntlmType3Generated
	default:
		return "", auth.NewAuthenticationError(NameNTLM, "unexpected state: "+n.state.String())
	}
	return "NTLM " + base64.StdEncoding.EncodeToString(msg), nil
}

// IsConnectionBased implements auth.Scheme.
func (n *NTLM) IsConnectionBased() bool { return true }

// splitDomainUser accepts both a separate domain and the DOMAIN\user form.
func splitDomainUser(creds auth.Credentials) (user, domain string) {
	if d, u, ok := strings.Cut(creds.Username, `\`); ok && creds.Domain == "" {
		return u, d
	}
	return creds.Username, creds.Domain
}
