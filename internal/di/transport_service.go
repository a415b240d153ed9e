package di

import (
	"github.com/samber/do/v2"
	"golang.org/x/time/rate"

	"github.com/omarluq/authneg/internal/transport"
)

// TransportService wraps the negotiating RoundTripper.
type TransportService struct {
	Transport *transport.Transport
	Limiter   *rate.Limiter
}

// NewTransport assembles the transport from every other service.
func NewTransport(i do.Injector) (*TransportService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	authCacheSvc := do.MustInvoke[*AuthCacheService](i)
	credsSvc := do.MustInvoke[*CredentialsService](i)
	strategySvc := do.MustInvoke[*StrategyService](i)
	authSvc := do.MustInvoke[*AuthenticatorService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)

	cfg := cfgSvc.Get()
	opts := []transport.Option{
		transport.WithLogger(*loggerSvc.Logger),
		transport.WithAuthenticator(authSvc.Authenticator),
		transport.WithStrategy(strategySvc.Strategy),
		transport.WithCredentials(credsSvc.Provider),
		transport.WithAuthCache(authCacheSvc.Store),
		transport.WithTracker(trackerSvc.Tracker),
		transport.WithMaxAttempts(cfg.Auth.GetMaxAttempts()),
	}

	svc := &TransportService{}
	if r, ok := cfg.Auth.GetRetryRateOption().Get(); ok {
		svc.Limiter = rate.NewLimiter(rate.Limit(r), cfg.Auth.GetRetryBurst())
		opts = append(opts, transport.WithLimiter(svc.Limiter))
	}
	svc.Transport = transport.New(opts...)
	return svc, nil
}
