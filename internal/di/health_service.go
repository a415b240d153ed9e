package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/authneg/internal/health"
)

// HealthTrackerService wraps the per-origin circuit breakers.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// NewHealthTracker creates the tracker from the auth breaker configuration.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	tracker := health.NewTracker(cfgSvc.Get().Auth.Breaker, loggerSvc.Logger)
	return &HealthTrackerService{Tracker: tracker}, nil
}
