package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/authneg/internal/config"
	"github.com/omarluq/authneg/internal/credentials"
)

// CredentialsService serves credentials that follow config reloads.
type CredentialsService struct {
	Provider *credentials.Reloadable
	logger   *zerolog.Logger
}

// NewCredentials builds the credentials store and rebuilds it whenever the
// config file is reloaded.
func NewCredentials(i do.Injector) (*CredentialsService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	store, err := buildCredentials(cfgSvc.Get(), loggerSvc.Logger)
	if err != nil {
		return nil, err
	}

	svc := &CredentialsService{
		Provider: credentials.NewReloadable(store),
		logger:   loggerSvc.Logger,
	}
	cfgSvc.OnReload(svc.reload)
	return svc, nil
}

func (s *CredentialsService) reload(cfg *config.Config) error {
	store, err := buildCredentials(cfg, s.logger)
	if err != nil {
		return err
	}
	s.Provider.Swap(store)
	s.logger.Info().Int("entries", store.Len()).Msg("credentials reloaded")
	return nil
}

func buildCredentials(cfg *config.Config, logger *zerolog.Logger) (*credentials.Store, error) {
	// Token sources outlive any request, so they get a background context.
	store, err := credentials.FromConfig(context.Background(), cfg.Credentials,
		credentials.WithLogger(*logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build credentials: %w", err)
	}
	return store, nil
}
