package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single health check.
const DefaultTimeout = 2 * time.Second

// ErrNoEndpoint is attached to results for cameras without a detection service URL.
var ErrNoEndpoint = errors.New("no detection service url configured")

// Result is the outcome of one GET {base}/health.
type Result struct {
	Outcome    Outcome
	StatusCode int // 0 when no HTTP response was received
	Latency    time.Duration
	Err        error   // transport error behind Unreachable
	Report     *Report // decoded body, when it parsed
}

// Checker performs one bounded health check. Implementations never fail:
// every problem is folded into the returned Result.
type Checker interface {
	Check(ctx context.Context, baseURL string) Result
}

// Client checks detection services over HTTP.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a Client; timeout <= 0 falls back to DefaultTimeout.
// Retries stay disabled, the scheduler retries on the next tick.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// HealthURL returns {base}/health with trailing slashes trimmed, or "" for an empty base.
func HealthURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/health"
}

func (c *Client) Check(ctx context.Context, baseURL string) Result {
	url := HealthURL(baseURL)
	if url == "" {
		return Result{Outcome: Unreachable, Err: ErrNoEndpoint}
	}

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	latency := time.Since(start)

	if err != nil {
		c.logger.Debug("Health check transport error",
			zap.String("url", url),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return Result{Outcome: Unreachable, Latency: latency, Err: err}
	}

	res := Result{
		Outcome:    Unhealthy,
		StatusCode: resp.StatusCode(),
		Latency:    latency,
	}
	if resp.IsSuccess() {
		res.Outcome = Healthy
	}

	if body := resp.Body(); len(body) > 0 {
		var report Report
		if err := json.Unmarshal(body, &report); err == nil {
			res.Report = &report
		}
	}
	return res
}
