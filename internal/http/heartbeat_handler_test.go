package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"go.uber.org/zap"
)

const testAPIKey = "test-key"

type capturePublisher struct {
	mu     sync.Mutex
	events []events.CameraStatusChanged
}

func (p *capturePublisher) Publish(evt events.CameraStatusChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Meta       map[string]any  `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func seedCameras(t *testing.T) *repository.MemoryCamerasRepo {
	repo := repository.NewMemoryCamerasRepo()
	hourAgo := time.Now().Add(-time.Hour)
	for _, c := range []*domain.Camera{
		{Code: "CAM001", Name: "Camera-001", Location: "Dapur Umum", Status: domain.CameraStatusInactive,
			ConnectedAt:    sql.NullTime{Time: hourAgo, Valid: true},
			DisconnectedAt: sql.NullTime{Time: hourAgo, Valid: true}},
		{Code: "CAM002", Name: "Camera-002", Location: "Gudang", Status: domain.CameraStatusActive,
			DetectionServiceURL: sql.NullString{String: "http://yolo:8081", Valid: true}},
		{Code: "CAM003", Name: "Camera-003", Location: "Dapur Belakang", Status: domain.CameraStatusMaintenance},
	} {
		_, err := repo.CreateCamera(context.Background(), c)
		require.NoError(t, err)
	}
	return repo
}

func newHeartbeatRouter(repo repository.CamerasRepository, pub events.Publisher) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterHeartbeatRoutes(NewHeartbeatHandler(repo, pub, zap.NewNop()), testAPIKey)
	return r
}

func postHeartbeat(router http.Handler, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/camera-heartbeat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-KEY", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHeartbeat_UpdatesConnectedAtAndStatus(t *testing.T) {
	repo := seedCameras(t)
	pub := &capturePublisher{}
	router := newHeartbeatRouter(repo, pub)

	rec := postHeartbeat(router, `{"camera_code":"CAM001","status":"active"}`, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, 200, env.StatusCode)
	assert.Equal(t, "Heartbeat received", env.Message)

	cam, err := repo.GetCameraByCode(context.Background(), "CAM001")
	require.NoError(t, err)
	assert.Equal(t, domain.CameraStatusActive, cam.Status)
	assert.WithinDuration(t, time.Now(), cam.ConnectedAt.Time, 5*time.Second)
	assert.False(t, cam.DisconnectedAt.Valid)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.SourceHeartbeat, pub.events[0].Source)
	assert.Equal(t, "active", pub.events[0].Status)
}

func TestHeartbeat_WithoutStatusOnlyTouchesConnectedAt(t *testing.T) {
	repo := seedCameras(t)
	pub := &capturePublisher{}
	router := newHeartbeatRouter(repo, pub)

	rec := postHeartbeat(router, `{"camera_code":"CAM001"}`, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	cam, err := repo.GetCameraByCode(context.Background(), "CAM001")
	require.NoError(t, err)
	assert.Equal(t, domain.CameraStatusInactive, cam.Status)
	assert.True(t, cam.DisconnectedAt.Valid)
	assert.WithinDuration(t, time.Now(), cam.ConnectedAt.Time, 5*time.Second)
	assert.Empty(t, pub.events)
}

func TestHeartbeat_ValidationErrors(t *testing.T) {
	router := newHeartbeatRouter(seedCameras(t), nil)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing camera_code", `{"status":"active"}`, "camera_code"},
		{"blank camera_code", `{"camera_code":"  "}`, "camera_code"},
		{"unknown camera", `{"camera_code":"INVALID","status":"active"}`, "camera_code"},
		{"bad status", `{"camera_code":"CAM001","status":"broken"}`, "status"},
		{"not json", `camera_code=CAM001`, "body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postHeartbeat(router, tc.body, testAPIKey)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			env := decodeEnvelope(t, rec)
			assert.Equal(t, 422, env.StatusCode)
			var data map[string][]string
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Contains(t, data, tc.field)
		})
	}
}

func TestHeartbeat_RequiresAPIKey(t *testing.T) {
	router := newHeartbeatRouter(seedCameras(t), nil)

	rec := postHeartbeat(router, `{"camera_code":"CAM001"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postHeartbeat(router, `{"camera_code":"CAM001"}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeEnvelope(t, rec).Message)
}

func TestHeartbeat_EmptyConfiguredKeyRejectsAll(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.RegisterHeartbeatRoutes(NewHeartbeatHandler(seedCameras(t), nil, zap.NewNop()), "")

	rec := postHeartbeat(r, `{"camera_code":"CAM001"}`, "anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeartbeat_MethodNotAllowed(t *testing.T) {
	router := newHeartbeatRouter(seedCameras(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/camera-heartbeat", nil)
	req.Header.Set("X-API-KEY", testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
