package repository

import (
	"context"
	"errors"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
)

var (
	// ErrCameraNotFound is returned when no camera matches the id/code.
	ErrCameraNotFound = errors.New("camera not found")
	// ErrStaleCamera is returned by a conditional update when the row's status changed
	// between the read and the write.
	ErrStaleCamera = errors.New("camera status changed concurrently")
)

// CamerasRepository is the camera state store.
type CamerasRepository interface {
	// ListReconcilable returns every camera whose status is in statuses.
	ListReconcilable(ctx context.Context, statuses []domain.CameraStatus) ([]*domain.Camera, error)

	ListCameras(ctx context.Context, filters CameraFilters, page, size int) ([]*domain.Camera, int, error)
	GetCameraByCode(ctx context.Context, code string) (*domain.Camera, error)

	// UpdateConnectivity is a single-row write of status/detection/timestamps.
	UpdateConnectivity(ctx context.Context, update ConnectivityUpdate) error

	// ApplyHeartbeat is the detection service's own write path.
	ApplyHeartbeat(ctx context.Context, code string, status *domain.CameraStatus, at time.Time) (*HeartbeatResult, error)
}

// CameraFilters narrows ListCameras.
type CameraFilters struct {
	Status []string // any of active, inactive, maintenance
	Search string   // matches code, name or location
}

// ConnectivityUpdate carries the fields the reconciler owns.
type ConnectivityUpdate struct {
	CameraID        int64
	Status          domain.CameraStatus
	DetectionOnline bool
	ConnectedAt     *time.Time
	DisconnectedAt  *time.Time
	UpdatedAt       time.Time

	// ExpectedStatus makes the write conditional on the current status when non-empty.
	ExpectedStatus domain.CameraStatus
}

// HeartbeatResult is the camera after a heartbeat plus the status it had before.
type HeartbeatResult struct {
	Camera         *domain.Camera
	PreviousStatus domain.CameraStatus
}

// StatusChanged reports whether the heartbeat moved the camera to another status.
func (r *HeartbeatResult) StatusChanged() bool {
	return r.Camera != nil && r.Camera.Status != r.PreviousStatus
}

// applyHeartbeat mutates c the way a heartbeat does: connected_at is always refreshed,
// status is replaced when given and inactive->active clears disconnected_at.
func applyHeartbeat(c *domain.Camera, status *domain.CameraStatus, at time.Time) {
	c.ConnectedAt = domain.NullTimeFrom(&at)
	if status != nil {
		if c.Status == domain.CameraStatusInactive && *status == domain.CameraStatusActive {
			c.DisconnectedAt = domain.NullTimeFrom(nil)
		}
		c.Status = *status
	}
	c.UpdatedAt = at
}
