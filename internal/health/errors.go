package health

import "errors"

// ErrCircuitOpen is returned while an origin's breaker rejects requests.
var ErrCircuitOpen = errors.New("health: circuit breaker is open")
