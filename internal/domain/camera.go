package domain

import (
	"database/sql"
	"fmt"
	"time"
)

// CameraStatus is the operational status stored in cameras.status.
type CameraStatus string

const (
	CameraStatusActive      CameraStatus = "active"
	CameraStatusInactive    CameraStatus = "inactive"
	CameraStatusMaintenance CameraStatus = "maintenance"
)

// Valid reports whether s is one of the three stored statuses.
func (s CameraStatus) Valid() bool {
	switch s {
	case CameraStatusActive, CameraStatusInactive, CameraStatusMaintenance:
		return true
	}
	return false
}

// ParseCameraStatus validates a raw status string.
func ParseCameraStatus(raw string) (CameraStatus, error) {
	s := CameraStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid camera status %q", raw)
	}
	return s, nil
}

// Camera maps a row of the cameras table.
type Camera struct {
	ID          int64          `db:"id"`
	Code        string         `db:"code"` // external key shared with the detection service, NOT NULL UNIQUE
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Location    string         `db:"location"`

	// detection service base URL, nullable
	DetectionServiceURL sql.NullString `db:"yolo_service_url"`

	Status          CameraStatus `db:"status"`
	DetectionOnline bool         `db:"yolo_detection_status"`

	ConnectedAt       sql.NullTime `db:"connected_at"`
	DisconnectedAt    sql.NullTime `db:"disconnected_at"`
	LastMaintenanceAt sql.NullTime `db:"last_maintenance_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ServiceURL returns the configured detection service URL or "".
func (c *Camera) ServiceURL() string {
	if c.DetectionServiceURL.Valid {
		return c.DetectionServiceURL.String
	}
	return ""
}

// ToJSON renders the camera for HTTP responses.
func (c *Camera) ToJSON() map[string]any {
	m := map[string]any{
		"id":                    c.ID,
		"code":                  c.Code,
		"name":                  c.Name,
		"location":              c.Location,
		"status":                string(c.Status),
		"detection_online":      c.DetectionOnline,
		"description":           nil,
		"detection_service_url": nil,
		"connected_at":          nullTime(c.ConnectedAt),
		"disconnected_at":       nullTime(c.DisconnectedAt),
		"last_maintenance_at":   nullTime(c.LastMaintenanceAt),
		"created_at":            c.CreatedAt,
		"updated_at":            c.UpdatedAt,
	}
	if c.Description.Valid {
		m["description"] = c.Description.String
	}
	if c.DetectionServiceURL.Valid {
		m["detection_service_url"] = c.DetectionServiceURL.String
	}
	return m
}

func nullTime(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}

// TimePtr converts a nullable column to *time.Time.
func TimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// NullTimeFrom converts *time.Time back to a nullable column value.
func NullTimeFrom(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
