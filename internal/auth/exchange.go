package auth

// State is the phase of an authentication exchange.
type State int

const (
	// StateUnchallenged means no challenge is being answered.
	StateUnchallenged State = iota
	// StateChallenged means candidate schemes were selected for a challenge.
	StateChallenged
	// StateHandshake means a multi-round scheme is mid-negotiation.
	StateHandshake
	// StateFailure is terminal: authentication failed for this exchange.
	StateFailure
	// StateSuccess means the last auth response was accepted.
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateUnchallenged:
		return "UNCHALLENGED"
	case StateChallenged:
		return "CHALLENGED"
	case StateHandshake:
		return "HANDSHAKE"
	case StateFailure:
		return "FAILURE"
	case StateSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// Exchange is the negotiation state for one (host, challenge type) pair.
// It is not safe for concurrent use; one logical request owns it.
type Exchange struct {
	scheme  Scheme
	options []Scheme
	state   State
}

// NewExchange creates an unchallenged exchange.
func NewExchange() *Exchange {
	return &Exchange{}
}

// State returns the current phase.
func (e *Exchange) State() State {
	return e.state
}

// SetState moves the exchange to s without touching the selected scheme.
func (e *Exchange) SetState(s State) {
	e.state = s
}

// Scheme returns the selected scheme, or nil.
func (e *Exchange) Scheme() Scheme {
	return e.scheme
}

// Options returns a copy of the pending candidate schemes.
func (e *Exchange) Options() []Scheme {
	if len(e.options) == 0 {
		return nil
	}
	out := make([]Scheme, len(e.options))
	copy(out, e.options)
	return out
}

// SetOptions replaces the queue of candidate schemes.
func (e *Exchange) SetOptions(options []Scheme) {
	e.options = append([]Scheme(nil), options...)
}

// Select makes s the scheme of this exchange and drops pending options.
func (e *Exchange) Select(s Scheme) {
	e.scheme = s
	e.options = nil
}

// Reset returns the exchange to UNCHALLENGED with no scheme or options.
func (e *Exchange) Reset() {
	e.state = StateUnchallenged
	e.scheme = nil
	e.options = nil
}

// takeOptions removes the option queue from the exchange and hands it to the
// caller, which then selects candidates one by one.
func (e *Exchange) takeOptions() []Scheme {
	opts := e.options
	e.options = nil
	return opts
}

func (e *Exchange) mustScheme() Scheme {
	if e.scheme == nil {
		panic(&InvariantError{Message: "no auth scheme selected in state " + e.state.String()})
	}
	return e.scheme
}
