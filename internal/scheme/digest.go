package scheme

import (
	"context"
	"crypto/md5" //nolint:gosec // RFC 7616 mandates MD5 support
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"net/http"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/challenge"
)

const qopAuth = "auth"

// Digest implements RFC 7616 Digest access authentication with qop=auth
// or the RFC 2069 compatibility mode when the server announces no qop.
type Digest struct {
	creds     *auth.Credentials
	cnonce    func() (string, error)
	realm     string
	nonce     string
	opaque    string
	algorithm string
	lastNonce string
	qop       []string
	nc        uint32
	mu        sync.Mutex
	complete  bool
	stale     bool
}

var (
	_ auth.Scheme = (*Digest)(nil)
	_ Stateful    = (*Digest)(nil)
)

// NewDigest creates a Digest scheme.
func NewDigest() *Digest {
	return &Digest{cnonce: randomCnonce}
}

// Name implements auth.Scheme.
func (d *Digest) Name() string { return NameDigest }

// ProcessChallenge records the challenge parameters. realm and nonce are
// required. A stale challenge keeps the handshake open so the request can
// be retried with the fresh nonce.
func (d *Digest) ProcessChallenge(_ context.Context, ch challenge.Challenge) error {
	if len(ch.Params) == 0 {
		return auth.NewMalformedChallengeError(NameDigest, "authentication challenge is empty")
	}
	if !ch.HasParam("realm") {
		return auth.NewMalformedChallengeError(NameDigest, "missing realm")
	}
	nonce := ch.Param("nonce")
	if nonce == "" {
		return auth.NewMalformedChallengeError(NameDigest, "missing nonce")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.realm = ch.Param("realm")
	d.nonce = nonce
	d.opaque = ch.Param("opaque")
	d.algorithm = ch.Param("algorithm")
	d.qop = parseQop(ch.Param("qop"))
	d.stale = strings.EqualFold(ch.Param("stale"), "true")
	d.complete = true
	return nil
}

// IsChallengeComplete implements auth.Scheme.
func (d *Digest) IsChallengeComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.complete && !d.stale
}

// IsResponseReady looks up credentials for the challenged realm.
func (d *Digest) IsResponseReady(ctx context.Context, host auth.Host, provider auth.CredentialsProvider) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	creds, ok := lookupCredentials(ctx, provider, host, d.realm, NameDigest)
	if !ok {
		return false, nil
	}
	d.creds = &creds
	return true, nil
}

// GenerateAuthResponse computes the digest response for req. Each call
// increments the nonce count.
func (d *Digest) GenerateAuthResponse(_ context.Context, _ auth.Host, req *http.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.creds == nil {
		return "", auth.NewAuthenticationError(NameDigest, "credentials not set")
	}
	newHash, sess, ok := digestAlgorithm(d.algorithm)
	if !ok {
		return "", auth.NewAuthenticationError(NameDigest, "unsupported digest algorithm "+d.algorithm)
	}
	var qop string
	if len(d.qop) > 0 {
		if !lo.Contains(d.qop, qopAuth) {
			return "", auth.NewAuthenticationError(NameDigest,
				"none of the qop methods is supported: "+strings.Join(d.qop, ", "))
		}
		qop = qopAuth
	}

	if d.nonce != d.lastNonce {
		d.nc = 0
		d.lastNonce = d.nonce
	}
	d.nc++
	nc := fmt.Sprintf("%08x", d.nc)

	var cnonce string
	if qop != "" || sess {
		var err error
		if cnonce, err = d.cnonce(); err != nil {
			return "", &auth.AuthenticationError{Scheme: NameDigest, Err: fmt.Errorf("generate cnonce: %w", err)}
		}
	}

	h := func(parts ...string) string {
		hh := newHash()
		hh.Write([]byte(strings.Join(parts, ":")))
		return hex.EncodeToString(hh.Sum(nil))
	}

	method, uri := requestTarget(req)
	ha1 := h(d.creds.Username, d.realm, d.creds.Password)
	if sess {
		ha1 = h(ha1, d.nonce, cnonce)
	}
	ha2 := h(method, uri)

	var response string
	if qop != "" {
		response = h(ha1, d.nonce, nc, cnonce, qop, ha2)
	} else {
		response = h(ha1, d.nonce, ha2)
	}

	var b strings.Builder
	b.WriteString("Digest username=" + quote(d.creds.Username))
	b.WriteString(", realm=" + quote(d.realm))
	b.WriteString(", nonce=" + quote(d.nonce))
	b.WriteString(", uri=" + quote(uri))
	b.WriteString(", response=" + quote(response))
	if qop != "" {
		b.WriteString(", qop=" + qop + ", nc=" + nc + ", cnonce=" + quote(cnonce))
	}
	if d.algorithm != "" {
		b.WriteString(", algorithm=" + d.algorithm)
	}
	if d.opaque != "" {
		b.WriteString(", opaque=" + quote(d.opaque))
	}
	return b.String(), nil
}

// IsConnectionBased implements auth.Scheme.
func (d *Digest) IsConnectionBased() bool { return false }

type digestState struct {
	Realm     string   `json:"realm"`
	Nonce     string   `json:"nonce"`
	Opaque    string   `json:"opaque,omitempty"`
	Algorithm string   `json:"algorithm,omitempty"`
	Qop       []string `json:"qop,omitempty"`
	NC        uint32   `json:"nc"`
	Complete  bool     `json:"complete"`
}

// MarshalState implements Stateful.
func (d *Digest) MarshalState() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	nc := d.nc
	if d.lastNonce != d.nonce {
		nc = 0
	}
	return json.Marshal(digestState{
		Realm:     d.realm,
		Nonce:     d.nonce,
		Opaque:    d.opaque,
		Algorithm: d.algorithm,
		Qop:       d.qop,
		NC:        nc,
		Complete:  d.complete,
	})
}

// UnmarshalState implements Stateful.
func (d *Digest) UnmarshalState(data []byte) error {
	var st digestState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("scheme: decode digest state: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.realm = st.Realm
	d.nonce = st.Nonce
	d.lastNonce = st.Nonce
	d.opaque = st.Opaque
	d.algorithm = st.Algorithm
	d.qop = st.Qop
	d.nc = st.NC
	d.complete = st.Complete
	d.stale = false
	d.creds = nil
	return nil
}

// digestAlgorithm maps an algorithm name to its hash and whether it is a
// session variant. An empty name means MD5.
func digestAlgorithm(name string) (newHash func() hash.Hash, sess bool, ok bool) {
	base, sess := strings.CutSuffix(strings.ToUpper(name), "-SESS")
	switch base {
	case "", "MD5":
		if base == "" && sess {
			return nil, false, false
		}
		return md5.New, sess, true
	case "SHA-256":
		return sha256.New, sess, true
	case "SHA-512-256":
		return sha512.New512_256, sess, true
	default:
		return nil, false, false
	}
}

func parseQop(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	}))
}

// requestTarget returns the method and digest-uri for req.
func requestTarget(req *http.Request) (method, uri string) {
	method = req.Method
	if method == "" {
		method = http.MethodGet
	}
	switch {
	case req.URL == nil:
		uri = "/"
	case method == http.MethodConnect:
		uri = req.URL.Host
	default:
		uri = req.URL.RequestURI()
	}
	return method, uri
}

func randomCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
