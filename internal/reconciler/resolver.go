package reconciler

import (
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/healthcheck"
)

// Target is the connectivity state a camera should be in after a check.
type Target struct {
	Status          domain.CameraStatus
	DetectionOnline bool
	ConnectedAt     *time.Time
	DisconnectedAt  *time.Time
}

// Resolve maps a health outcome to the target connectivity state.
// Anything that is not Healthy counts as disconnected.
func Resolve(outcome healthcheck.Outcome, now time.Time) Target {
	at := now
	if outcome == healthcheck.Healthy {
		return Target{
			Status:          domain.CameraStatusActive,
			DetectionOnline: true,
			ConnectedAt:     &at,
		}
	}
	return Target{
		Status:         domain.CameraStatusInactive,
		DisconnectedAt: &at,
	}
}
