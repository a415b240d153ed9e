package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/strategy"
)

// StrategyService wraps the scheme preference.
type StrategyService struct {
	Strategy *strategy.Preference
}

// NewStrategy creates the preference from auth.preferred_schemes.
func NewStrategy(i do.Injector) (*StrategyService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	pref, err := strategy.NewPreference(cfgSvc.Get().Auth.PreferredSchemes,
		strategy.WithLogger(*loggerSvc.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	return &StrategyService{Strategy: pref}, nil
}

// AuthenticatorService wraps the authenticator.
type AuthenticatorService struct {
	Authenticator *auth.Authenticator
}

// NewAuthenticator creates the authenticator logging through zerolog.
func NewAuthenticator(i do.Injector) (*AuthenticatorService, error) {
	loggerSvc := do.MustInvoke[*LoggerService](i)

	a := auth.NewAuthenticator(auth.WithLogger(auth.NewZerologLogger(*loggerSvc.Logger)))
	return &AuthenticatorService{Authenticator: a}, nil
}
