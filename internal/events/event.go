package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
)

// Source names the writer that produced a transition.
type Source string

const (
	SourceReconciler Source = "reconciler"
	SourceHeartbeat  Source = "heartbeat"
)

// CameraStatusChanged is emitted once per observed status transition.
type CameraStatusChanged struct {
	EventID        string     `json:"event_id"`
	CameraCode     string     `json:"camera_code"`
	Status         string     `json:"status"`
	ConnectedAt    *time.Time `json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at"`
	OccurredAt     time.Time  `json:"occurred_at"`
	Source         Source     `json:"source"`
}

// NewCameraStatusChanged stamps a fresh event id.
func NewCameraStatusChanged(code string, status domain.CameraStatus, connectedAt, disconnectedAt *time.Time, source Source, at time.Time) CameraStatusChanged {
	return CameraStatusChanged{
		EventID:        uuid.NewString(),
		CameraCode:     code,
		Status:         string(status),
		ConnectedAt:    connectedAt,
		DisconnectedAt: disconnectedAt,
		OccurredAt:     at,
		Source:         source,
	}
}

// Emitter delivers an event to one downstream sink.
type Emitter interface {
	Emit(ctx context.Context, evt CameraStatusChanged) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, evt CameraStatusChanged) error

func (f EmitterFunc) Emit(ctx context.Context, evt CameraStatusChanged) error {
	return f(ctx, evt)
}

// Publisher hands events off without waiting for delivery.
type Publisher interface {
	Publish(evt CameraStatusChanged)
}
