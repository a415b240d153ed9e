package transport

import (
	"errors"

	"github.com/omarluq/authneg/internal/health"
)

// ErrCircuitOpen is returned when an origin's breaker rejects a request.
var ErrCircuitOpen = health.ErrCircuitOpen

// errAuthFailed is reported to the breaker when an exchange ends in FAILURE.
var errAuthFailed = errors.New("transport: authentication failed")
