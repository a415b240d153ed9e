package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	content := "logging:\n  level: " + level + "\ncache:\n  mode: disabled\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func startWatcher(t *testing.T, path string) (*Watcher, *atomic.Pointer[Config]) {
	t.Helper()

	w, err := NewWatcher(path, WithDebounceDelay(20*time.Millisecond), WithWatcherLogger(zerolog.Nop()))
	require.NoError(t, err)

	var latest atomic.Pointer[Config]
	w.OnReload(func(cfg *Config) error {
		latest.Store(cfg)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return w, &latest
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "authneg.yaml")
	writeConfig(t, path, "info")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, w.Path())

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrWatcherClosed)

	_, err = NewWatcher("/nonexistent/dir/authneg.yaml")
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authneg.yaml")
	writeConfig(t, path, "info")
	_, latest := startWatcher(t, path)

	writeConfig(t, path, "debug")

	require.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && cfg.Logging.Level == "debug"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_KeepsPreviousOnInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authneg.yaml")
	writeConfig(t, path, "info")
	_, latest := startWatcher(t, path)

	writeConfig(t, path, "verbose")
	time.Sleep(300 * time.Millisecond)
	assert.Nil(t, latest.Load(), "invalid config must not reach callbacks")

	writeConfig(t, path, "warn")
	require.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && cfg.Logging.Level == "warn"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "authneg.yaml")
	writeConfig(t, path, "info")
	_, latest := startWatcher(t, path)

	writeConfig(t, filepath.Join(dir, "other.yaml"), "debug")
	time.Sleep(300 * time.Millisecond)
	assert.Nil(t, latest.Load())
}
