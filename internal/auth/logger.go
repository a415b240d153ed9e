package auth

import "github.com/rs/zerolog"

// Logger is the leveled structured logger used by the Authenticator.
// keyvals are alternating field names and values.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger. Entries are tagged with
// component: auth.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{log: l.With().Str("component", "auth").Logger()}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return &zerologLogger{log: zerolog.Nop()}
}

func (z *zerologLogger) Debug(msg string, keyvals ...any) {
	z.log.Debug().Fields(keyvals).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, keyvals ...any) {
	z.log.Warn().Fields(keyvals).Msg(msg)
}

func (z *zerologLogger) Error(msg string, keyvals ...any) {
	z.log.Error().Fields(keyvals).Msg(msg)
}
