package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/authneg/internal/config"
)

// ConfigService holds the loaded configuration and its file watcher.
// Readers call Get per operation so hot reloads are observed.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	path    string
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers cb for validated reloads. It is a no-op when the
// watcher could not be created.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	if c.watcher == nil {
		return
	}
	c.watcher.OnReload(cb)
}

// StartWatching begins watching the config file. Cancel ctx to stop.
// Call it after the services that register reload callbacks are resolved.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()
	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the configuration and creates a watcher.
// An empty path yields the defaults with nothing to watch.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	if path == "" {
		return &ConfigService{runtime: config.NewRuntime(config.Default())}, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	svc := &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}

	// Hot reload is optional.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
		return svc, nil
	}
	svc.watcher = watcher
	svc.watcher.OnReload(func(next *config.Config) error {
		svc.runtime.Store(next)
		return nil
	})
	return svc, nil
}
