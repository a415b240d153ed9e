// Package config loads authneg configuration from YAML or TOML files.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/authneg/internal/cache"
	"github.com/omarluq/authneg/internal/health"
)

// RuntimeConfig is read per request by components that must observe
// hot-reloaded configuration.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Auth defaults.
const (
	DefaultMaxAttempts = 5
	DefaultCacheTTL    = time.Hour
)

// Config is the complete authneg configuration.
type Config struct {
	Credentials []CredentialConfig `yaml:"credentials" toml:"credentials"`
	Logging     LoggingConfig      `yaml:"logging" toml:"logging"`
	Cache       cache.Config       `yaml:"cache" toml:"cache"`
	Auth        AuthConfig         `yaml:"auth" toml:"auth"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// ParseLevel converts Level to a zerolog level, defaulting to info.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// AuthConfig tunes challenge/response negotiation.
type AuthConfig struct {
	// PreferredSchemes orders the schemes tried when a server offers
	// several. Empty means ntlm, digest, basic, bearer.
	PreferredSchemes []string `yaml:"preferred_schemes" toml:"preferred_schemes"`

	// CacheTTL is a Go duration string ("30m") bounding how long a
	// successful scheme is reused preemptively.
	CacheTTL string `yaml:"cache_ttl" toml:"cache_ttl"`

	Breaker health.CircuitBreakerConfig `yaml:"breaker" toml:"breaker"`

	// RetryRate limits authentication round trips per second across the
	// transport. Zero disables pacing.
	RetryRate float64 `yaml:"retry_rate" toml:"retry_rate"`

	// MaxAttempts bounds the requests sent for one logical request,
	// including the first. Zero means DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`

	RetryBurst int `yaml:"retry_burst" toml:"retry_burst"`
}

// GetMaxAttempts returns MaxAttempts or DefaultMaxAttempts.
func (a *AuthConfig) GetMaxAttempts() int {
	if a.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return a.MaxAttempts
}

// GetCacheTTL returns the parsed CacheTTL, or DefaultCacheTTL when unset
// or unparsable. Validate reports unparsable values.
func (a *AuthConfig) GetCacheTTL() time.Duration {
	if a.CacheTTL == "" {
		return DefaultCacheTTL
	}
	d, err := time.ParseDuration(a.CacheTTL)
	if err != nil || d < 0 {
		return DefaultCacheTTL
	}
	return d
}

// GetRetryRateOption returns the pacing rate, or None when pacing is off.
func (a *AuthConfig) GetRetryRateOption() mo.Option[float64] {
	if a.RetryRate <= 0 {
		return mo.None[float64]()
	}
	return mo.Some(a.RetryRate)
}

// GetRetryBurst returns RetryBurst, at least 1.
func (a *AuthConfig) GetRetryBurst() int {
	if a.RetryBurst <= 0 {
		return 1
	}
	return a.RetryBurst
}

// CredentialConfig is one credential entry. Host, Port, Realm and Scheme
// scope the entry; empty or zero values match anything.
type CredentialConfig struct {
	Host   string `yaml:"host" toml:"host"`
	Realm  string `yaml:"realm" toml:"realm"`
	Scheme string `yaml:"scheme" toml:"scheme"`

	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`
	Domain      string `yaml:"domain" toml:"domain"`
	Workstation string `yaml:"workstation" toml:"workstation"`

	// Token is a static bearer token.
	Token string `yaml:"token" toml:"token"`

	// TokenURL switches the entry to the OAuth2 client-credentials grant.
	TokenURL     string   `yaml:"token_url" toml:"token_url"`
	ClientID     string   `yaml:"client_id" toml:"client_id"`
	ClientSecret string   `yaml:"client_secret" toml:"client_secret"`
	Scopes       []string `yaml:"scopes" toml:"scopes"`

	Port int `yaml:"port" toml:"port"`
}

// Default returns a configuration with a local single-process cache and
// default negotiation settings.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: LevelInfo},
		Cache:   cache.DefaultConfig(),
	}
}
