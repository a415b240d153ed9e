package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/omarluq/authneg/internal/auth"
	"github.com/omarluq/authneg/internal/config"
)

// Env holds credentials taken from the environment.
type Env struct {
	Username string `env:"AUTHNEG_USERNAME"`
	Password string `env:"AUTHNEG_PASSWORD"`
	Token    string `env:"AUTHNEG_TOKEN"`
	Domain   string `env:"AUTHNEG_DOMAIN"`
}

// FromEnv returns a wildcard-scoped entry built from AUTHNEG_USERNAME,
// AUTHNEG_PASSWORD, AUTHNEG_TOKEN and AUTHNEG_DOMAIN, or None when none of
// them is set.
func FromEnv() (mo.Option[Entry], error) {
	var env Env
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return mo.None[Entry](), nil
		}
		return mo.None[Entry](), fmt.Errorf("credentials: decode environment: %w", err)
	}

	entry := Entry{
		Credentials: auth.Credentials{
			Username: env.Username,
			Password: env.Password,
			Domain:   env.Domain,
			Token:    env.Token,
		},
	}
	return mo.Some(entry), nil
}

// EntryFromConfig converts one configured credential. ctx carries the HTTP
// client for token requests (see oauth2.HTTPClient) and outlives the entry.
func EntryFromConfig(ctx context.Context, c *config.CredentialConfig) Entry {
	e := Entry{
		Pattern: Pattern{
			Host:   c.Host,
			Port:   c.Port,
			Realm:  c.Realm,
			Scheme: c.Scheme,
		},
		Credentials: auth.Credentials{
			Username:    c.Username,
			Password:    c.Password,
			Domain:      c.Domain,
			Workstation: c.Workstation,
		},
	}

	switch {
	case c.TokenURL != "":
		cc := &clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			Scopes:       c.Scopes,
		}
		e.Tokens = cc.TokenSource(ctx)
	case c.Token != "":
		e.Tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"})
	}
	return e
}

// FromConfig builds a Store from configured entries followed by the
// environment entry, if any. The environment entry matches everything and
// so only applies where no configured entry does.
func FromConfig(ctx context.Context, entries []config.CredentialConfig, opts ...Option) (*Store, error) {
	out := lo.Map(entries, func(c config.CredentialConfig, _ int) Entry {
		return EntryFromConfig(ctx, &c)
	})

	env, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if e, ok := env.Get(); ok {
		out = append(out, e)
	}
	return NewStore(out, opts...), nil
}
