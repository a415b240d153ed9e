package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State is the breaker state.
type State = gobreaker.State

// Breaker states.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker wraps a gobreaker TwoStepCircuitBreaker for one origin.
type CircuitBreaker struct {
	cb     *gobreaker.TwoStepCircuitBreaker[struct{}]
	origin string
}

// NewCircuitBreaker creates a breaker for origin. logger may be nil.
func NewCircuitBreaker(origin string, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	threshold := uint32(cfg.GetFailureThreshold()) //nolint:gosec // positive by construction
	settings := gobreaker.Settings{
		Name:        origin,
		MaxRequests: uint32(cfg.GetHalfOpenProbes()), //nolint:gosec // positive by construction
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("origin", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		origin: origin,
	}
}

// Allow reserves a slot. The caller must call done exactly once with the
// outcome; a nil error counts as success.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Origin returns the origin this breaker guards.
func (c *CircuitBreaker) Origin() string {
	return c.origin
}
