package cache

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex

	// Logger is the package logger. It discards everything until SetLogger
	// is called.
	Logger = zerolog.Nop()
)

// SetLogger replaces the package logger, tagging it with component=cache.
//
//	logger := zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
//	cache.SetLogger(&logger)
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Logger = l.With().Str("component", "cache").Logger()
}

func logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return Logger
}
