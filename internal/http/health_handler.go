package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler serves GET /health for the API process itself.
type HealthHandler struct {
	checks map[string]Pinger
	start  time.Time
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &HealthHandler{checks: checks, start: time.Now()}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{}
	healthy := true
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			deps[name] = err.Error()
			healthy = false
			continue
		}
		deps[name] = "ok"
	}

	status, code, msg := "ok", http.StatusOK, "Success"
	if !healthy {
		status, code, msg = "degraded", http.StatusServiceUnavailable, "Service unavailable"
	}
	writeJSON(w, code, Result[map[string]any]{
		StatusCode: code,
		Message:    msg,
		Data: map[string]any{
			"status":         status,
			"dependencies":   deps,
			"uptime_seconds": int64(time.Since(h.start).Seconds()),
		},
		Meta: map[string]any{},
	})
}
