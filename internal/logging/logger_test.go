package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authneg/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("scheme", "digest").Msg("auth succeeded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "auth succeeded", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "digest", entry["scheme"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Format: "json"})
		require.NoError(t, err)
		assert.Equal(t, tt.want, logger.GetLevel(), tt.level)
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authneg.log")
	logger, err := NewLogger(config.LoggingConfig{Format: "json", Output: path})
	require.NoError(t, err)

	logger.Warn().Msg("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	_, err = NewLogger(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestShouldUsePretty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want bool
	}{
		{"pretty flag", config.LoggingConfig{Pretty: true, Format: "json"}, true},
		{"pretty format", config.LoggingConfig{Format: "pretty"}, true},
		{"json format", config.LoggingConfig{Format: "json"}, false},
		{"console without terminal", config.LoggingConfig{Format: "console"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldUsePretty(tt.cfg, nil))
		})
	}
}

func TestConsoleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf))
	logger.Warn().Str("host", "intranet").Msg("challenge malformed")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "-> challenge malformed")
	assert.Contains(t, out, "host=")
}

func TestWithRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), base, "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	zerolog.Ctx(ctx).Info().Msg("sent")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	generated := WithRequestID(context.Background(), base, "")
	_, err := uuid.Parse(RequestID(generated))
	assert.NoError(t, err)

	assert.Empty(t, RequestID(context.Background()))
}
