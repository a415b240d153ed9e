package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// lifecycle guards backend calls against a concurrent Close. Operations hold
// the read lock; Close takes the write lock once.
type lifecycle struct {
	mu     sync.RWMutex
	closed atomic.Bool
}

// enter checks ctx and the closed flag and, on success, returns with the
// read lock held. The caller must call leave.
func (l *lifecycle) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.closed.Load() {
		return ErrClosed
	}
	l.mu.RLock()
	if l.closed.Load() {
		l.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (l *lifecycle) leave() {
	l.mu.RUnlock()
}

// shutdown runs release exactly once, after in-flight operations finish.
// It reports false if the backend was already closed.
func (l *lifecycle) shutdown(release func() error) (bool, error) {
	if l.closed.Load() {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Load() {
		return false, nil
	}
	l.closed.Store(true)
	return true, release()
}

func (l *lifecycle) isClosed() bool {
	return l.closed.Load()
}

// cloneBytes copies b so callers never share memory with the store.
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
