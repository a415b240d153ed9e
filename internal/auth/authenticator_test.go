package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authneg/internal/auth"
)

const wwwAuth = "WWW-Authenticate"

func TestChallengeType(t *testing.T) {
	t.Parallel()

	tests := []struct { //nolint:govet // test table struct alignment
		name           string
		ct             auth.ChallengeType
		wantStatus     int
		wantChallenge  string
		wantResponse   string
		wantStringForm string
	}{
		{"target", auth.ChallengeTarget, http.StatusUnauthorized, "WWW-Authenticate", "Authorization", "target"},
		{"proxy", auth.ChallengeProxy, http.StatusProxyAuthRequired, "Proxy-Authenticate", "Proxy-Authorization", "proxy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantStatus, tt.ct.StatusCode())
			assert.Equal(t, tt.wantChallenge, tt.ct.ChallengeHeader())
			assert.Equal(t, tt.wantResponse, tt.ct.ResponseHeader())
			assert.Equal(t, tt.wantStringForm, tt.ct.String())
		})
	}

	assert.Panics(t, func() { auth.ChallengeType(9).StatusCode() })
}

func TestHostFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://API.example.com/x", "https://api.example.com:443"},
		{"http://example.com/", "http://example.com:80"},
		{"http://example.com:8080/", "http://example.com:8080"},
		{"https://[::1]:8443/", "https://[::1]:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, auth.HostFromURL(u).String())
		})
	}
}

func TestIsChallenged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("challenge after success clears cache and keeps state", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		ex := auth.NewExchange()
		scheme := newFakeScheme("Basic")
		ex.Select(scheme)
		ex.SetState(auth.StateSuccess)
		cc.Cache.Put(ctx, testHost, scheme)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusUnauthorized, wwwAuth), ex, cc)

		assert.True(t, got)
		assert.False(t, isCached(ctx, cc, testHost))
		assert.Equal(t, auth.StateSuccess, ex.State())
		assert.Same(t, scheme, ex.Scheme())
	})

	t.Run("challenge while unchallenged keeps cache", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		cc.Cache.Put(ctx, testHost, newFakeScheme("Basic"))
		ex := auth.NewExchange()

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusUnauthorized, wwwAuth), ex, cc)

		assert.True(t, got)
		assert.True(t, isCached(ctx, cc, testHost))
		assert.Equal(t, auth.StateUnchallenged, ex.State())
	})

	t.Run("accepted response after handshake caches cachable scheme", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		ex := auth.NewExchange()
		ex.Select(newFakeScheme("Digest"))
		ex.SetState(auth.StateHandshake)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusOK, wwwAuth), ex, cc)

		assert.False(t, got)
		assert.Equal(t, auth.StateSuccess, ex.State())
		assert.True(t, isCached(ctx, cc, testHost))
	})

	t.Run("connection based scheme is never cached", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		ex := auth.NewExchange()
		ex.Select(newFakeScheme("NTLM"))
		ex.SetState(auth.StateChallenged)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusOK, wwwAuth), ex, cc)

		assert.False(t, got)
		assert.Equal(t, auth.StateSuccess, ex.State())
		assert.False(t, isCached(ctx, cc, testHost))
	})

	t.Run("missing cache is created on success", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := &auth.ClientContext{Credentials: staticCredentials{}}
		ex := auth.NewExchange()
		ex.Select(newFakeScheme("basic"))
		ex.SetState(auth.StateChallenged)

		a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusNoContent, wwwAuth), ex, cc)

		require.NotNil(t, cc.Cache)
		assert.True(t, isCached(ctx, cc, testHost))
	})

	t.Run("success stays success", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.Select(newFakeScheme("Basic"))
		ex.SetState(auth.StateSuccess)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusOK, wwwAuth), ex, newClientContext())

		assert.False(t, got)
		assert.Equal(t, auth.StateSuccess, ex.State())
	})

	t.Run("accepted response before any option was tried", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		ex := auth.NewExchange()
		ex.SetOptions([]auth.Scheme{newFakeScheme("Basic")})
		ex.SetState(auth.StateChallenged)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusOK, wwwAuth), ex, cc)

		assert.False(t, got)
		assert.Equal(t, auth.StateUnchallenged, ex.State())
		assert.Nil(t, ex.Scheme())
		assert.Empty(t, ex.Options())
		assert.False(t, isCached(ctx, cc, testHost))
	})

	t.Run("failure resets to unchallenged", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateFailure)

		got := a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusForbidden, wwwAuth), ex, newClientContext())

		assert.False(t, got)
		assert.Equal(t, auth.StateUnchallenged, ex.State())
	})

	t.Run("proxy type only reacts to 407", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		cc := newClientContext()

		assert.False(t, a.IsChallenged(ctx, testHost, auth.ChallengeProxy, newResponse(http.StatusUnauthorized, wwwAuth), ex, cc))
		assert.True(t, a.IsChallenged(ctx, testHost, auth.ChallengeProxy, newResponse(http.StatusProxyAuthRequired, wwwAuth), ex, cc))
	})
}

func TestPrepareAuthResponse_NoUsableChallenges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		values []string
	}{
		{"no headers", nil},
		{"only malformed headers", []string{`Basic realm="unterminated`, `="x"`}},
		{"empty header value", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := auth.NewAuthenticator()
			cc := newClientContext()
			cc.Cache.Put(ctx, testHost, newFakeScheme("Basic"))
			ex := auth.NewExchange()
			ex.Select(newFakeScheme("Basic"))
			ex.SetState(auth.StateSuccess)
			strategy := strategyOf(newFakeScheme("Basic"))

			resp := newResponse(http.StatusUnauthorized, wwwAuth, tt.values...)
			got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategy, ex, cc)

			assert.False(t, got)
			assert.Equal(t, auth.StateUnchallenged, ex.State())
			assert.Nil(t, ex.Scheme())
			assert.Empty(t, ex.Options())
			assert.False(t, isCached(ctx, cc, testHost))
			assert.Zero(t, strategy.calls)
		})
	}
}

func TestPrepareAuthResponse_MalformedHeaderIsSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, buf := newBufferedAuthenticator(t)
	basic := newFakeScheme("Basic")
	ex := auth.NewExchange()

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Digest realm="oops`, `Basic realm="ok"`)
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(basic), ex, newClientContext())

	require.True(t, got)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "malformed challenge")
}

func TestPrepareAuthResponse_SelectsReadyScheme(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	basic := newFakeScheme("Basic")
	ex := auth.NewExchange()

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="files"`)
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(basic), ex, newClientContext())

	require.True(t, got)
	assert.Equal(t, auth.StateChallenged, ex.State())
	assert.Nil(t, ex.Scheme())
	require.Len(t, ex.Options(), 1)
	assert.Same(t, basic, ex.Options()[0])
	require.Len(t, basic.processed, 1)
	assert.Equal(t, "files", basic.processed[0].Param("realm"))
}

func TestPrepareAuthResponse_FirstChallengeWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	basic := newFakeScheme("Basic")

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="first"`, `basic realm="second"`)
	require.True(t, a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(basic), auth.NewExchange(), newClientContext()))

	require.Len(t, basic.processed, 1)
	assert.Equal(t, "first", basic.processed[0].Param("realm"))
}

func TestPrepareAuthResponse_ProbingSkipsBrokenSchemes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, buf := newBufferedAuthenticator(t)

	malformed := newFakeScheme("Digest")
	malformed.processErr = auth.NewMalformedChallengeError("Digest", "missing nonce")
	failing := newFakeScheme("NTLM")
	failing.readyErr = auth.NewAuthenticationError("NTLM", "no domain")
	notReady := newFakeScheme("Bearer")
	notReady.notReady = true
	ready := newFakeScheme("Basic")
	unoffered := newFakeScheme("Negotiate")

	resp := newResponse(http.StatusUnauthorized, wwwAuth,
		`Digest realm="r"`, "NTLM", `Bearer realm="r"`, `Basic realm="r"`)
	ex := auth.NewExchange()
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp,
		strategyOf(malformed, failing, notReady, unoffered, ready), ex, newClientContext())

	require.True(t, got)
	require.Len(t, ex.Options(), 1)
	assert.Same(t, ready, ex.Options()[0])
	assert.Empty(t, unoffered.processed)
	assert.Equal(t, 2, strings.Count(buf.String(), `"level":"warn"`))
}

func TestPrepareAuthResponse_NothingReady(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	notReady := newFakeScheme("Basic")
	notReady.notReady = true
	ex := auth.NewExchange()

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(notReady), ex, newClientContext())

	assert.False(t, got)
	assert.Equal(t, auth.StateUnchallenged, ex.State())
	assert.Empty(t, ex.Options())
}

func TestPrepareAuthResponse_NoCredentialsProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	basic := newFakeScheme("Basic")

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(basic), auth.NewExchange(),
		&auth.ClientContext{Cache: auth.NewMemoryCache()})

	assert.False(t, got)
	assert.Empty(t, basic.processed)
}

func TestPrepareAuthResponse_Failure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, values := range [][]string{{`Basic realm="r"`}, nil} {
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateFailure)
		strategy := strategyOf(newFakeScheme("Basic"))

		resp := newResponse(http.StatusUnauthorized, wwwAuth, values...)
		got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategy, ex, newClientContext())

		assert.False(t, got)
		assert.Equal(t, auth.StateFailure, ex.State())
		assert.Zero(t, strategy.calls)
	}
}

func TestPrepareAuthResponse_ResetsAfterSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	old := newFakeScheme("Basic")
	fresh := newFakeScheme("Basic")
	ex := auth.NewExchange()
	ex.Select(old)
	ex.SetState(auth.StateSuccess)

	resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
	got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(fresh), ex, newClientContext())

	require.True(t, got)
	assert.Equal(t, auth.StateChallenged, ex.State())
	assert.Nil(t, ex.Scheme())
	assert.Equal(t, []auth.Scheme{fresh}, ex.Options())
	assert.Empty(t, old.processed)
}

func TestPrepareAuthResponse_Handshake(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("incomplete handshake continues", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ntlm := newFakeScheme("NTLM")
		strategy := strategyOf()
		ex := auth.NewExchange()
		ex.Select(ntlm)
		ex.SetState(auth.StateChallenged)

		resp := newResponse(http.StatusUnauthorized, wwwAuth, "NTLM TlRMTVNTUAACAAAA")
		got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategy, ex, newClientContext())

		require.True(t, got)
		assert.Equal(t, auth.StateHandshake, ex.State())
		assert.Same(t, ntlm, ex.Scheme())
		require.Len(t, ntlm.processed, 1)
		assert.Equal(t, "TlRMTVNTUAACAAAA", ntlm.processed[0].Token68)
		assert.Zero(t, strategy.calls)
	})

	t.Run("completed handshake under challenge fails", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		digest := newFakeScheme("Digest")
		digest.completeAfter = 1
		cc.Cache.Put(ctx, testHost, digest)
		ex := auth.NewExchange()
		ex.Select(digest)
		ex.SetState(auth.StateHandshake)

		resp := newResponse(http.StatusUnauthorized, wwwAuth, `Digest realm="r", nonce="n2"`)
		got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(), ex, cc)

		assert.False(t, got)
		assert.Equal(t, auth.StateFailure, ex.State())
		assert.Nil(t, ex.Scheme())
		assert.False(t, isCached(ctx, cc, testHost))
	})

	t.Run("malformed handshake challenge resets", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		cc := newClientContext()
		ntlm := newFakeScheme("NTLM")
		ntlm.processErr = auth.NewMalformedChallengeError("NTLM", "bad token")
		ex := auth.NewExchange()
		ex.Select(ntlm)
		ex.SetState(auth.StateHandshake)

		resp := newResponse(http.StatusUnauthorized, wwwAuth, "NTLM TlRMTVNT")
		got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(), ex, cc)

		assert.False(t, got)
		assert.Equal(t, auth.StateUnchallenged, ex.State())
		assert.Nil(t, ex.Scheme())
	})

	t.Run("dropped scheme triggers fresh selection", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ntlm := newFakeScheme("NTLM")
		basic := newFakeScheme("Basic")
		ex := auth.NewExchange()
		ex.Select(ntlm)
		ex.SetState(auth.StateHandshake)

		resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
		got := a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(basic), ex, newClientContext())

		require.True(t, got)
		assert.Equal(t, auth.StateChallenged, ex.State())
		assert.Equal(t, []auth.Scheme{basic}, ex.Options())
		assert.Empty(t, ntlm.processed)
	})

	t.Run("handshake without scheme is an invariant violation", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateHandshake)

		resp := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
		assert.Panics(t, func() {
			a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, resp, strategyOf(), ex, newClientContext())
		})
	})
}

func TestPrepareAuthResponse_ProxyHeaders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	basic := newFakeScheme("Basic")
	ex := auth.NewExchange()

	resp := newResponse(http.StatusProxyAuthRequired, "Proxy-Authenticate", `Basic realm="proxy"`)
	resp.Header.Add(wwwAuth, `Basic realm="origin"`)

	require.True(t, a.PrepareAuthResponse(ctx, testHost, auth.ChallengeProxy, resp, strategyOf(basic), ex, newClientContext()))
	require.Len(t, basic.processed, 1)
	assert.Equal(t, "proxy", basic.processed[0].Param("realm"))
}

func TestAddAuthResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("failure adds nothing", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateFailure)
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.OutcomeReject, out.Kind)
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("challenged falls back to next option", func(t *testing.T) {
		t.Parallel()
		a, buf := newBufferedAuthenticator(t)
		first := newFakeScheme("Digest")
		first.genErr = auth.NewAuthenticationError("Digest", "unsupported qop")
		second := newFakeScheme("Basic")
		ex := auth.NewExchange()
		ex.SetState(auth.StateChallenged)
		ex.SetOptions([]auth.Scheme{first, second})
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.Continue("Basic token"), out)
		assert.Equal(t, []string{"Basic token"}, req.Header.Values("Authorization"))
		assert.Same(t, second, ex.Scheme())
		assert.Empty(t, ex.Options())
		assert.Equal(t, auth.StateChallenged, ex.State())
		assert.Equal(t, 1, first.generated)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.NotContains(t, buf.String(), `"level":"error"`)
	})

	t.Run("challenged with every option failing", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		first := newFakeScheme("Digest")
		first.genErr = auth.NewAuthenticationError("Digest", "boom")
		second := newFakeScheme("Basic")
		second.genErr = auth.NewAuthenticationError("Basic", "boom")
		ex := auth.NewExchange()
		ex.SetState(auth.StateChallenged)
		ex.SetOptions([]auth.Scheme{first, second})
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.OutcomeReject, out.Kind)
		assert.Empty(t, req.Header.Values("Authorization"))
		assert.Empty(t, ex.Options())
	})

	t.Run("handshake failure is terminal and logged as error", func(t *testing.T) {
		t.Parallel()
		a, buf := newBufferedAuthenticator(t)
		ntlm := newFakeScheme("NTLM")
		ntlm.genErr = auth.NewAuthenticationError("NTLM", "bad state")
		ex := auth.NewExchange()
		ex.Select(ntlm)
		ex.SetState(auth.StateHandshake)
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.OutcomeReject, out.Kind)
		assert.Empty(t, req.Header.Get("Authorization"))
		assert.Contains(t, buf.String(), `"level":"error"`)
	})

	t.Run("success with connection based scheme adds nothing", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ntlm := newFakeScheme("NTLM")
		ntlm.connectionBased = true
		ex := auth.NewExchange()
		ex.Select(ntlm)
		ex.SetState(auth.StateSuccess)
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.NoAction(), out)
		assert.Zero(t, ntlm.generated)
	})

	t.Run("success reuses scheme", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.Select(newFakeScheme("Basic"))
		ex.SetState(auth.StateSuccess)
		req := newRequest()

		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())

		assert.Equal(t, auth.OutcomeContinue, out.Kind)
		assert.Equal(t, "Basic token", req.Header.Get("Authorization"))
	})

	t.Run("success without scheme panics", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateSuccess)

		assert.Panics(t, func() {
			a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, newRequest(), ex, newClientContext())
		})
	})

	t.Run("proxy header", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		ex.SetState(auth.StateChallenged)
		ex.SetOptions([]auth.Scheme{newFakeScheme("Basic")})
		req := newRequest()

		a.AddAuthResponse(ctx, testHost, auth.ChallengeProxy, req, ex, newClientContext())

		assert.Equal(t, "Basic token", req.Header.Get("Proxy-Authorization"))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("preemptive scheme while unchallenged", func(t *testing.T) {
		t.Parallel()
		a := auth.NewAuthenticator()
		ex := auth.NewExchange()
		req := newRequest()

		assert.Equal(t, auth.NoAction(), a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext()))

		ex.Select(newFakeScheme("Basic"))
		out := a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, newClientContext())
		assert.Equal(t, auth.OutcomeContinue, out.Kind)
		assert.Equal(t, auth.StateUnchallenged, ex.State())
	})
}

// TestRoundTrip_BasicFlow walks a full 401 -> retry -> 200 -> re-challenge cycle.
func TestRoundTrip_BasicFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := auth.NewAuthenticator()
	cc := newClientContext()
	ex := auth.NewExchange()
	basic := newFakeScheme("Basic")
	basic.completeAfter = 1

	challenged := newResponse(http.StatusUnauthorized, wwwAuth, `Basic realm="r"`)
	require.True(t, a.IsChallenged(ctx, testHost, auth.ChallengeTarget, challenged, ex, cc))
	require.True(t, a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, challenged, strategyOf(basic), ex, cc))

	req := newRequest()
	require.Equal(t, auth.OutcomeContinue, a.AddAuthResponse(ctx, testHost, auth.ChallengeTarget, req, ex, cc).Kind)

	require.False(t, a.IsChallenged(ctx, testHost, auth.ChallengeTarget, newResponse(http.StatusOK, wwwAuth), ex, cc))
	assert.Equal(t, auth.StateSuccess, ex.State())
	cached, ok := cc.Cache.Get(ctx, testHost).Get()
	require.True(t, ok)
	assert.Same(t, basic, cached)

	// Credentials revoked: the next challenge evicts and restarts negotiation.
	require.True(t, a.IsChallenged(ctx, testHost, auth.ChallengeTarget, challenged, ex, cc))
	assert.False(t, isCached(ctx, cc, testHost))
	retry := newFakeScheme("Basic")
	require.True(t, a.PrepareAuthResponse(ctx, testHost, auth.ChallengeTarget, challenged, strategyOf(retry), ex, cc))
	assert.Equal(t, auth.StateChallenged, ex.State())
}

func TestErrors(t *testing.T) {
	t.Parallel()

	var malformed *auth.MalformedChallengeError
	err := error(auth.NewMalformedChallengeError("Digest", "missing nonce"))
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "auth: malformed Digest challenge: missing nonce", err.Error())

	var authErr *auth.AuthenticationError
	err = error(auth.NewAuthenticationError("Basic", "no credentials"))
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "auth: Basic authentication error: no credentials", err.Error())
}
