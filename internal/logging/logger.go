// Package logging builds the process logger and carries request ids
// through contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/authneg/internal/config"
)

type ctxKey string

// RequestIDKey is the context key for request ids.
const RequestIDKey ctxKey = "request_id"

// NewLogger builds a logger from cfg. Output defaults to stderr so that
// response bodies written to stdout stay clean.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	output, file, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if shouldUsePretty(cfg, file) {
		output = consoleWriter(output)
	}

	return zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger(), nil
}

func selectOutput(output string) (io.Writer, *os.File, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, os.Stderr, nil
	case "stdout":
		return os.Stdout, os.Stdout, nil
	default:
		f, err := os.OpenFile(filepath.Clean(output), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", output, err)
		}
		return f, f, nil
	}
}

// shouldUsePretty: the Pretty flag wins, "json" never, "pretty" always,
// anything else when the output is a terminal.
func shouldUsePretty(cfg config.LoggingConfig, f *os.File) bool {
	if cfg.Pretty {
		return true
	}
	switch cfg.Format {
	case "pretty":
		return true
	case "json":
		return false
	default:
		return f != nil && isatty.IsTerminal(f.Fd())
	}
}

var levelLabels = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
	"fatal": "\033[35mFTL\033[0m",
	"panic": "\033[35mPNC\033[0m",
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		FormatLevel: func(i any) string {
			s, _ := i.(string)
			if label, ok := levelLabels[s]; ok {
				return label
			}
			return s
		},
		FormatMessage: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("-> %s", i)
		},
		FormatFieldName: func(i any) string {
			return fmt.Sprintf("\033[2m%s=\033[0m", i)
		},
		FormatFieldValue: func(i any) string {
			return fmt.Sprintf("%s", i)
		},
	}
}

// WithRequestID stores id in ctx, generating a UUID when id is empty, and
// tags the context logger with it. The logger is taken from ctx, falling
// back to base.
func WithRequestID(ctx context.Context, base zerolog.Logger, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	ctx = context.WithValue(ctx, RequestIDKey, id)

	l := base
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		l = *ctxLogger
	}
	l = l.With().Str("request_id", id).Logger()
	return l.WithContext(ctx)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
