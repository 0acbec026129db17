package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"go.uber.org/zap"
)

const maxHeartbeatBody = 64 << 10

// HeartbeatHandler serves POST /api/camera-heartbeat, pushed by the detection service.
type HeartbeatHandler struct {
	repo      repository.CamerasRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewHeartbeatHandler(repo repository.CamerasRepository, publisher events.Publisher, logger *zap.Logger) *HeartbeatHandler {
	return &HeartbeatHandler{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

type heartbeatRequest struct {
	CameraCode *string `json:"camera_code"`
	Status     *string `json:"status"`
}

func (h *HeartbeatHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := readBodyJSON(r, maxHeartbeatBody, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationFailed(map[string][]string{
			"body": {"The request body must be a JSON object."},
		}))
		return
	}

	errs := map[string][]string{}
	code := ""
	if req.CameraCode != nil {
		code = strings.TrimSpace(*req.CameraCode)
	}
	if code == "" {
		errs["camera_code"] = []string{"The camera code field is required."}
	}
	var status *domain.CameraStatus
	if req.Status != nil && *req.Status != "" {
		s, err := domain.ParseCameraStatus(*req.Status)
		if err != nil {
			errs["status"] = []string{"The selected status is invalid."}
		} else {
			status = &s
		}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationFailed(errs))
		return
	}

	res, err := h.repo.ApplyHeartbeat(r.Context(), code, status, h.now())
	if err != nil {
		if errors.Is(err, repository.ErrCameraNotFound) {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationFailed(map[string][]string{
				"camera_code": {"The selected camera code is invalid."},
			}))
			return
		}
		h.logger.Error("Failed to apply heartbeat", zap.String("camera_code", code), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(http.StatusInternalServerError, "Internal server error"))
		return
	}

	cam := res.Camera
	if res.StatusChanged() && h.publisher != nil {
		h.publisher.Publish(events.NewCameraStatusChanged(
			cam.Code,
			cam.Status,
			domain.TimePtr(cam.ConnectedAt),
			domain.TimePtr(cam.DisconnectedAt),
			events.SourceHeartbeat,
			cam.UpdatedAt,
		))
	}

	h.logger.Debug("Heartbeat received",
		zap.String("camera_code", cam.Code),
		zap.String("status", string(cam.Status)),
		zap.Bool("status_changed", res.StatusChanged()),
	)
	writeJSON(w, http.StatusOK, Ok(cam.ToJSON(), "Heartbeat received"))
}
