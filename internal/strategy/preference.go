// Package strategy decides which authentication schemes to try for a set of
// server challenges, and in which order.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/scheme"
)

// DefaultPreference is the scheme order used when none is configured.
// Connection-based and digest schemes rank above plain credentials.
var DefaultPreference = []string{
	scheme.NameNTLM,
	scheme.NameDigest,
	scheme.NameBasic,
	scheme.NameBearer,
}

// Preference offers schemes in a fixed order of preference.
type Preference struct {
	log   zerolog.Logger
	order []string
}

var _ auth.Strategy = (*Preference)(nil)

// Option configures a Preference.
type Option func(*Preference)

// WithLogger sets the logger used for skipped challenges.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Preference) {
		p.log = l.With().Str("component", "strategy").Logger()
	}
}

// NewPreference creates a Preference strategy. An empty order means
// DefaultPreference. Names are matched case-insensitively and duplicates
// are dropped; unsupported names are an error.
func NewPreference(order []string, opts ...Option) (*Preference, error) {
	if len(order) == 0 {
		order = DefaultPreference
	}
	for _, name := range order {
		if !scheme.Supported(name) {
			return nil, fmt.Errorf("strategy: unsupported scheme %q in preference list", name)
		}
	}

	p := &Preference{
		log:   zerolog.Nop(),
		order: lo.Uniq(lo.Map(order, func(name string, _ int) string { return strings.ToLower(name) })),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Order returns the lower-cased preference list.
func (p *Preference) Order() []string {
	return append([]string(nil), p.order...)
}

// Select returns fresh scheme instances for every preferred scheme the
// server offered, most preferred first.
func (p *Preference) Select(_ context.Context, challengeType auth.ChallengeType, challenges auth.ChallengeMap) []auth.Scheme {
	selected := make([]auth.Scheme, 0, len(challenges))
	for _, name := range p.order {
		if _, ok := challenges.Lookup(name); !ok {
			p.log.Debug().Str("scheme", name).Str("type", challengeType.String()).
				Msg("challenge for scheme not available")
			continue
		}
		s, err := scheme.New(name)
		if err != nil {
			// names are validated in NewPreference
			continue
		}
		selected = append(selected, s)
	}

	for key := range challenges {
		if !lo.Contains(p.order, key) {
			p.log.Debug().Str("scheme", key).Msg("challenge for scheme not supported")
		}
	}
	return selected
}
