package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/omarluq/authneg/internal/scheme"
)

var validLogLevels = map[string]bool{
	"":         true,
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

var validLogFormats = map[string]bool{
	"":        true,
	"json":    true,
	"console": true,
	"pretty":  true,
}

// Validate checks every section and returns a *ValidationError listing all
// problems, or nil.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateLogging(c, errs)
	validateCache(c, errs)
	validateAuth(c, errs)
	validateCredentials(c, errs)

	return errs.ToError()
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, pretty)", c.Logging.Format)
	}
}

func validateCache(c *Config, errs *ValidationError) {
	if err := c.Cache.Validate(); err != nil {
		errs.Add(err.Error())
	}
}

func validateAuth(c *Config, errs *ValidationError) {
	a := &c.Auth
	for _, name := range a.PreferredSchemes {
		if !scheme.Supported(name) {
			errs.Addf("auth.preferred_schemes contains unsupported scheme %q", name)
		}
	}
	if a.MaxAttempts < 0 {
		errs.Add("auth.max_attempts must be >= 0")
	}
	if a.RetryRate < 0 {
		errs.Add("auth.retry_rate must be >= 0")
	}
	if a.RetryBurst < 0 {
		errs.Add("auth.retry_burst must be >= 0")
	}
	if a.CacheTTL != "" {
		if d, err := time.ParseDuration(a.CacheTTL); err != nil || d < 0 {
			errs.Addf("auth.cache_ttl must be a non-negative duration (got %q)", a.CacheTTL)
		}
	}
	b := &a.Breaker
	if b.FailureThreshold < 0 || b.OpenDurationMS < 0 || b.HalfOpenProbes < 0 {
		errs.Add("auth.breaker values must be >= 0")
	}
}

func validateCredentials(c *Config, errs *ValidationError) {
	for i := range c.Credentials {
		validateCredential(&c.Credentials[i], i, errs)
	}
}

func validateCredential(cred *CredentialConfig, index int, errs *ValidationError) {
	field := func(name string) string {
		return fmt.Sprintf("credentials[%d].%s", index, name)
	}

	if cred.Scheme != "" && !scheme.Supported(cred.Scheme) {
		errs.Addf("%s is unsupported (got %q)", field("scheme"), cred.Scheme)
	}
	if cred.Port < 0 || cred.Port > 65535 {
		errs.Addf("%s must be 0-65535 (got %d)", field("port"), cred.Port)
	}

	switch {
	case cred.TokenURL != "":
		if u, err := url.Parse(cred.TokenURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs.Addf("%s must be an absolute URL (got %q)", field("token_url"), cred.TokenURL)
		}
		if cred.ClientID == "" {
			errs.Addf("%s is required with token_url", field("client_id"))
		}
	case cred.Token != "":
	case cred.Username == "":
		errs.Addf("%s needs a username, token or token_url", fmt.Sprintf("credentials[%d]", index))
	}
}
