package cache

import "errors"

// Errors returned by every backend. Compare with errors.Is.
var (
	// ErrNotFound is returned for a missing or expired key.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("cache: cache is closed")
)
