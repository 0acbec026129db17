package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/healthcheck"
)

func TestResolve(t *testing.T) {
	now := time.Date(2026, 2, 19, 7, 8, 13, 0, time.UTC)

	got := Resolve(healthcheck.Healthy, now)
	assert.Equal(t, domain.CameraStatusActive, got.Status)
	assert.True(t, got.DetectionOnline)
	require.NotNil(t, got.ConnectedAt)
	assert.Equal(t, now, *got.ConnectedAt)
	assert.Nil(t, got.DisconnectedAt)

	for _, o := range []healthcheck.Outcome{healthcheck.Unhealthy, healthcheck.Unreachable} {
		got := Resolve(o, now)
		assert.Equal(t, domain.CameraStatusInactive, got.Status, o.String())
		assert.False(t, got.DetectionOnline)
		assert.Nil(t, got.ConnectedAt)
		require.NotNil(t, got.DisconnectedAt)
		assert.Equal(t, now, *got.DisconnectedAt)
	}
}

func TestResolve_ZeroOutcomeIsUnreachable(t *testing.T) {
	var o healthcheck.Outcome
	assert.Equal(t, domain.CameraStatusInactive, Resolve(o, time.Now()).Status)
}
