package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ReloadCallback receives each successfully loaded and validated
// configuration. A returned error is logged; later callbacks still run.
type ReloadCallback func(*Config) error

// ErrWatcherClosed is returned by Close on a closed watcher.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// Watcher reloads a config file when it changes. It watches the parent
// directory so editors that save via rename are picked up, and debounces
// bursts of events into one reload.
type Watcher struct {
	ctx           context.Context
	fsWatcher     *fsnotify.Watcher
	cancel        context.CancelFunc
	log           zerolog.Logger
	path          string
	callbacks     []ReloadCallback
	debounceDelay time.Duration
	mu            sync.RWMutex
	timerMu       sync.Mutex
	timer         *time.Timer
	closed        bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce window. Default 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger sets the logger for reload events.
func WithWatcherLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.log = l
	}
}

// NewWatcher watches the config file at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:          absPath,
		fsWatcher:     fsWatcher,
		debounceDelay: 100 * time.Millisecond,
		log:           log.Logger,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		if closeErr := fsWatcher.Close(); closeErr != nil {
			w.log.Error().Err(closeErr).Msg("failed to close watcher after add failure")
		}
		return nil, err
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers cb. Callbacks run in registration order.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch processes file events until ctx is canceled or the watcher is
// closed. It returns nil in both cases.
func (w *Watcher) Watch(ctx context.Context) error {
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			// Chmod alone comes from indexers and virus scanners.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, func() {
		if w.ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// reload keeps the previous configuration when the new file fails to
// load or validate.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("failed to reload config")
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("reloaded config is invalid, keeping previous")
		return
	}

	w.log.Info().Str("path", w.path).Msg("config file reloaded")

	w.mu.RLock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			w.log.Error().Err(err).Msg("config reload callback error")
		}
	}
}

// Close stops watching. Pending debounced reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	w.cancel()
	w.stopTimer()
	return w.fsWatcher.Close()
}
