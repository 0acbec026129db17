package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportPageSize  = 500
)

// StatusReader returns the latest cached status per camera.
type StatusReader interface {
	All(ctx context.Context) ([]events.CameraStatusChanged, error)
}

type CamerasHandler struct {
	repo     repository.CamerasRepository
	statuses StatusReader // nil: derive statuses from the repository
	logger   *zap.Logger
	now      func() time.Time
}

func NewCamerasHandler(repo repository.CamerasRepository, statuses StatusReader, logger *zap.Logger) *CamerasHandler {
	return &CamerasHandler{repo: repo, statuses: statuses, logger: logger, now: time.Now}
}

// List serves GET /api/cameras?status=&search=&page=&size=
func (h *CamerasHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, ok := parseCameraFilters(w, q.Get("status"), q.Get("search"))
	if !ok {
		return
	}
	page := parseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseInt(q.Get("size"), defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	cams, total, err := h.repo.ListCameras(r.Context(), filters, page, size)
	if err != nil {
		h.logger.Error("Failed to list cameras", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Internal server error"))
		return
	}

	items := make([]map[string]any, 0, len(cams))
	for _, c := range cams {
		items = append(items, c.ToJSON())
	}
	writeJSON(w, http.StatusOK, Paginated(items, page, size, total))
}

func (h *CamerasHandler) Get(w http.ResponseWriter, r *http.Request, code string) {
	cam, err := h.repo.GetCameraByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCameraNotFound) {
			writeJSON(w, http.StatusNotFound, Fail(http.StatusNotFound, "Camera not found"))
			return
		}
		h.logger.Error("Failed to get camera", zap.String("camera_code", code), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Internal server error"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(cam.ToJSON(), "Success"))
}

// Statuses serves GET /api/cameras/status, the dashboard's health polling endpoint.
// Every camera in the table is listed; a cached transition replaces the row's
// view when it is at least as recent, so the entry carries its source.
func (h *CamerasHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached map[string]events.CameraStatusChanged
	if h.statuses != nil {
		list, err := h.statuses.All(ctx)
		if err != nil {
			h.logger.Warn("Status cache unavailable, reading cameras table only", zap.Error(err))
		} else {
			cached = make(map[string]events.CameraStatusChanged, len(list))
			for _, evt := range list {
				cached[evt.CameraCode] = evt
			}
		}
	}

	cams, err := h.allCameras(ctx, repository.CameraFilters{})
	if err != nil {
		h.logger.Error("Failed to list camera statuses", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Internal server error"))
		return
	}
	list := make([]events.CameraStatusChanged, 0, len(cams))
	for _, c := range cams {
		if evt, ok := cached[c.Code]; ok && !evt.OccurredAt.Before(c.UpdatedAt) {
			list = append(list, evt)
			continue
		}
		list = append(list, statusFromCamera(c))
	}
	writeJSON(w, http.StatusOK, Ok(list, "Success"))
}

func statusFromCamera(c *domain.Camera) events.CameraStatusChanged {
	return events.CameraStatusChanged{
		CameraCode:     c.Code,
		Status:         string(c.Status),
		ConnectedAt:    domain.TimePtr(c.ConnectedAt),
		DisconnectedAt: domain.TimePtr(c.DisconnectedAt),
		OccurredAt:     c.UpdatedAt,
	}
}

// Export serves GET /api/cameras/export as an XLSX workbook.
func (h *CamerasHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, ok := parseCameraFilters(w, q.Get("status"), q.Get("search"))
	if !ok {
		return
	}
	cams, err := h.allCameras(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to load cameras for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Internal server error"))
		return
	}

	data, err := GenerateCameraExport(cams)
	if err != nil {
		h.logger.Error("Failed to generate camera export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Failed to generate export"))
		return
	}

	filename := fmt.Sprintf("cameras_%s.xlsx", h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *CamerasHandler) allCameras(ctx context.Context, filters repository.CameraFilters) ([]*domain.Camera, error) {
	var out []*domain.Camera
	for page := 1; ; page++ {
		cams, total, err := h.repo.ListCameras(ctx, filters, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, cams...)
		if len(cams) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

// parseCameraFilters accepts status as a comma separated list.
func parseCameraFilters(w http.ResponseWriter, rawStatus, search string) (repository.CameraFilters, bool) {
	f := repository.CameraFilters{Search: strings.TrimSpace(search)}
	for _, s := range strings.Split(rawStatus, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := domain.ParseCameraStatus(s); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationFailed(map[string][]string{
				"status": {"The selected status is invalid."},
			}))
			return f, false
		}
		f.Status = append(f.Status, s)
	}
	return f, true
}
