// Package health tracks authentication health per origin.
//
// Each origin (scheme://host:port) gets a circuit breaker. An exchange that
// ends in a terminal authentication failure counts against the origin; a
// breaker that trips makes further requests to that origin fail fast until
// the open duration has passed and half-open probes succeed.
package health

import "time"

// Default configuration values.
const (
	DefaultFailureThreshold = 3     // consecutive failed handshakes to open
	DefaultOpenDurationMS   = 30000 // open for 30s before half-open
	DefaultHalfOpenProbes   = 1
)

// CircuitBreakerConfig defines breaker behavior. Zero values use defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenDurationMS is how long the circuit stays open before half-open.
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`

	// HalfOpenProbes requests are let through in half-open state. All must
	// succeed for the circuit to close.
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`

	// Disabled turns breaking off; every request is allowed.
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

// GetFailureThreshold returns the threshold or DefaultFailureThreshold.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration or the 30s default.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return time.Duration(DefaultOpenDurationMS) * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the probe count or DefaultHalfOpenProbes.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}
