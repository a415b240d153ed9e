package config

import "sync/atomic"

// Runtime holds the current configuration for hot reload. Readers call Get
// per operation; the watcher callback calls Store.
//
//	rt := config.NewRuntime(cfg)
//	w.OnReload(func(next *config.Config) error {
//		rt.Store(next)
//		return nil
//	})
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the most recently stored configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store swaps in cfg. Callers holding the previous value keep using it.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
