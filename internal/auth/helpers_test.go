package auth_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/challenge"
)

// fakeScheme is a scriptable auth.Scheme.
type fakeScheme struct {
	processErr      error
	readyErr        error
	genErr          error
	name            string
	response        string
	processed       []challenge.Challenge
	completeAfter   int
	generated       int
	notReady        bool
	connectionBased bool
}

func newFakeScheme(name string) *fakeScheme {
	return &fakeScheme{name: name, response: name + " token"}
}

func (f *fakeScheme) Name() string { return f.name }

func (f *fakeScheme) ProcessChallenge(_ context.Context, ch challenge.Challenge) error {
	if f.processErr != nil {
		return f.processErr
	}
	f.processed = append(f.processed, ch)
	return nil
}

func (f *fakeScheme) IsChallengeComplete() bool {
	return f.completeAfter > 0 && len(f.processed) >= f.completeAfter
}

func (f *fakeScheme) IsResponseReady(_ context.Context, _ auth.Host, _ auth.CredentialsProvider) (bool, error) {
	if f.readyErr != nil {
		return false, f.readyErr
	}
	return !f.notReady, nil
}

func (f *fakeScheme) GenerateAuthResponse(_ context.Context, _ auth.Host, _ *http.Request) (string, error) {
	f.generated++
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.response, nil
}

func (f *fakeScheme) IsConnectionBased() bool { return f.connectionBased }

// fakeStrategy returns its schemes in order.
type fakeStrategy struct {
	schemes []auth.Scheme
	calls   int
}

func (s *fakeStrategy) Select(_ context.Context, _ auth.ChallengeType, _ auth.ChallengeMap) []auth.Scheme {
	s.calls++
	return s.schemes
}

func strategyOf(schemes ...auth.Scheme) *fakeStrategy {
	return &fakeStrategy{schemes: schemes}
}

// staticCredentials hands out the same credentials for every scope.
type staticCredentials struct{}

func (staticCredentials) Credentials(_ context.Context, _ auth.Scope) mo.Option[auth.Credentials] {
	return mo.Some(auth.Credentials{Username: "user", Password: "pass"})
}

var testHost = auth.NewHost("https", "api.example.com", 0)

func newClientContext() *auth.ClientContext {
	return &auth.ClientContext{
		Credentials: staticCredentials{},
		Cache:       auth.NewMemoryCache(),
	}
}

// newResponse builds a response with the given status and challenge headers.
func newResponse(status int, header string, values ...string) *http.Response {
	rec := httptest.NewRecorder()
	for _, v := range values {
		rec.Header().Add(header, v)
	}
	rec.WriteHeader(status)
	return rec.Result()
}

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "https://api.example.com/resource", http.NoBody)
}

// newBufferedAuthenticator returns an Authenticator logging JSON into buf.
func newBufferedAuthenticator(t *testing.T) (*auth.Authenticator, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	return auth.NewAuthenticator(auth.WithLogger(auth.NewZerologLogger(logger))), &buf
}

func isCached(ctx context.Context, cc *auth.ClientContext, host auth.Host) bool {
	return cc.Cache.Get(ctx, host).IsPresent()
}
