package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker owns one lazily created CircuitBreaker per origin.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   CircuitBreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a Tracker. logger may be nil.
func NewTracker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// Circuit returns the breaker for origin, creating it on first use.
func (t *Tracker) Circuit(origin string) *CircuitBreaker {
	t.mu.RLock()
	cb, ok := t.circuits[origin]
	t.mu.RUnlock()
	if ok {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok = t.circuits[origin]; ok {
		return cb
	}

	cb = NewCircuitBreaker(origin, t.config, t.logger)
	t.circuits[origin] = cb
	if t.logger != nil {
		t.logger.Debug().Str("origin", origin).Msg("created circuit breaker")
	}
	return cb
}

// Allow reserves a slot on origin's breaker. With breaking disabled it
// always succeeds and done is a no-op.
func (t *Tracker) Allow(origin string) (done func(err error), err error) {
	if t.config.Disabled {
		return func(error) {}, nil
	}
	return t.Circuit(origin).Allow()
}

// State returns origin's breaker state; unknown origins are closed.
func (t *Tracker) State(origin string) State {
	t.mu.RLock()
	cb, ok := t.circuits[origin]
	t.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return cb.State()
}

// AllStates returns a snapshot of every known origin's state.
func (t *Tracker) AllStates() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]State, len(t.circuits))
	for origin, cb := range t.circuits {
		states[origin] = cb.State()
	}
	return states
}
