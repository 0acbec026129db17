package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router uses the standard http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			writeJSON(w, http.StatusMethodNotAllowed, Fail(http.StatusMethodNotAllowed, "Method not allowed"))
			return
		}
		h(w, req)
	}
}

// RegisterHeartbeatRoutes registers the detection service's push endpoint.
func (r *Router) RegisterHeartbeatRoutes(h *HeartbeatHandler, apiKey string) {
	r.Handle("/api/camera-heartbeat", RequireAPIKey(apiKey, methodOnly(http.MethodPost, h.Store)))
}

// RegisterCameraRoutes registers the read-only camera endpoints.
func (r *Router) RegisterCameraRoutes(h *CamerasHandler, apiKey string) {
	r.Handle("/api/cameras", RequireAPIKey(apiKey, methodOnly(http.MethodGet, h.List)))

	r.Handle("/api/cameras/", RequireAPIKey(apiKey, methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/cameras/")
		switch {
		case rest == "status":
			h.Statuses(w, req)
		case rest == "export":
			h.Export(w, req)
		case rest == "" || strings.Contains(rest, "/"):
			writeJSON(w, http.StatusNotFound, Fail(http.StatusNotFound, "Not found"))
		default:
			h.Get(w, req, rest)
		}
	})))
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/health", methodOnly(http.MethodGet, h.ServeHTTP))
}
