package healthcheck

// Outcome classifies one health check. The zero value is Unreachable, so a
// Result that was never filled in can never read as healthy.
type Outcome int

const (
	Unreachable Outcome = iota
	Unhealthy
	Healthy
)

func (o Outcome) String() string {
	switch o {
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unreachable"
	}
}

// Report is the detection service's /health payload. Informational only.
type Report struct {
	Status         string  `json:"status"`
	Mode           string  `json:"mode"`
	ActiveClients  int     `json:"active_clients"`
	CameraStatus   bool    `json:"camera_status"`
	YoloStatus     bool    `json:"yolo_status"`
	StreamerStatus bool    `json:"streamer_status"`
	SourceType     string  `json:"source_type"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}
