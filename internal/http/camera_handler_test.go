package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/store"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type staticStatuses struct {
	list []events.CameraStatusChanged
	err  error
}

func (s staticStatuses) All(context.Context) ([]events.CameraStatusChanged, error) {
	return s.list, s.err
}

func newCameraRouter(repo repository.CamerasRepository, statuses StatusReader) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterCameraRoutes(NewCamerasHandler(repo, statuses, zap.NewNop()), testAPIKey)
	return r
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-API-KEY", testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCameras_List(t *testing.T) {
	router := newCameraRouter(seedCameras(t), nil)

	rec := get(router, "/api/cameras?search=dapur&page=1&size=1")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "CAM001", items[0]["code"])
	assert.Equal(t, float64(2), env.Meta["total"])
	assert.Equal(t, float64(2), env.Meta["last_page"])

	rec = get(router, "/api/cameras?status=active,maintenance")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
}

func TestCameras_ListRejectsUnknownStatus(t *testing.T) {
	router := newCameraRouter(seedCameras(t), nil)

	rec := get(router, "/api/cameras?status=offline")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCameras_Get(t *testing.T) {
	router := newCameraRouter(seedCameras(t), nil)

	rec := get(router, "/api/cameras/CAM002")
	require.Equal(t, http.StatusOK, rec.Code)
	var cam map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &cam))
	assert.Equal(t, "active", cam["status"])
	assert.Equal(t, "http://yolo:8081", cam["detection_service_url"])

	rec = get(router, "/api/cameras/CAM404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Camera not found", decodeEnvelope(t, rec).Message)

	rec = get(router, "/api/cameras/CAM001/extra")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func decodeStatuses(t *testing.T, rec *httptest.ResponseRecorder) map[string]events.CameraStatusChanged {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var list []events.CameraStatusChanged
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &list))
	out := make(map[string]events.CameraStatusChanged, len(list))
	for _, evt := range list {
		out[evt.CameraCode] = evt
	}
	return out
}

func TestCameras_StatusesOverlayCache(t *testing.T) {
	repo := seedCameras(t)
	now := time.Now().UTC().Add(time.Second)
	cached := staticStatuses{list: []events.CameraStatusChanged{
		events.NewCameraStatusChanged("CAM001", domain.CameraStatusActive, &now, nil, events.SourceReconciler, now),
		// older than the row, the table wins
		events.NewCameraStatusChanged("CAM002", domain.CameraStatusInactive, nil, &now, events.SourceReconciler, now.Add(-time.Hour)),
		// not in the table
		events.NewCameraStatusChanged("CAM999", domain.CameraStatusActive, &now, nil, events.SourceReconciler, now),
	}}
	router := newCameraRouter(repo, cached)

	got := decodeStatuses(t, get(router, "/api/cameras/status"))
	require.Len(t, got, 3)
	assert.Equal(t, "active", got["CAM001"].Status)
	assert.Equal(t, events.SourceReconciler, got["CAM001"].Source)
	assert.Equal(t, "active", got["CAM002"].Status)
	assert.Empty(t, got["CAM002"].Source)
	assert.Equal(t, "maintenance", got["CAM003"].Status)
}

func TestCameras_StatusesListEveryCameraWhenCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := store.NewStatusCache(store.NewRedisKV(client), "apd:camera:status:", 5*time.Minute)

	router := newCameraRouter(seedCameras(t), cache)

	// cold start, nothing cached yet
	got := decodeStatuses(t, get(router, "/api/cameras/status"))
	assert.Len(t, got, 3)

	now := time.Now().UTC().Add(time.Second)
	require.NoError(t, cache.Put(context.Background(),
		events.NewCameraStatusChanged("CAM001", domain.CameraStatusActive, &now, nil, events.SourceHeartbeat, now)))
	got = decodeStatuses(t, get(router, "/api/cameras/status"))
	require.Len(t, got, 3)
	assert.Equal(t, events.SourceHeartbeat, got["CAM001"].Source)

	mr.FastForward(6 * time.Minute)
	got = decodeStatuses(t, get(router, "/api/cameras/status"))
	require.Len(t, got, 3)
	assert.Equal(t, "inactive", got["CAM001"].Status)
	assert.Equal(t, "active", got["CAM002"].Status)
	assert.Equal(t, "maintenance", got["CAM003"].Status)
}

func TestCameras_StatusesFallBackToRepository(t *testing.T) {
	router := newCameraRouter(seedCameras(t), staticStatuses{err: errors.New("redis down")})

	rec := get(router, "/api/cameras/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []events.CameraStatusChanged
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &list))
	require.Len(t, list, 3)
	assert.Equal(t, "CAM001", list[0].CameraCode)
	assert.Equal(t, "inactive", list[0].Status)
}

func TestCameras_Export(t *testing.T) {
	router := newCameraRouter(seedCameras(t), nil)

	rec := get(router, "/api/cameras/export?status=active,inactive")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cameras_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(cameraSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CameraExportHeader, rows[0])
	assert.Equal(t, "CAM001", rows[1][0])
	assert.Equal(t, "inactive", rows[1][3])
	assert.Equal(t, "CAM002", rows[2][0])
	assert.Equal(t, "Yes", rows[2][4])
}

func TestCameras_RequireAPIKey(t *testing.T) {
	router := newCameraRouter(seedCameras(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.RegisterHealthRoutes(NewHealthHandler(map[string]Pinger{
		"database": func(context.Context) error { return nil },
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	r = NewRouter(zap.NewNop())
	r.RegisterHealthRoutes(NewHealthHandler(map[string]Pinger{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "degraded", data["status"])
}
