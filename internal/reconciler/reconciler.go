package reconciler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/healthcheck"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 8

// Options tune a Reconciler.
type Options struct {
	Workers            int
	IncludeMaintenance bool
	ConditionalWrites  bool
}

// Summary counts what a single pass did.
type Summary struct {
	Checked   int
	Changed   int
	Unchanged int
	Stale     int
	Failed    int
	Skipped   int // cancelled before the write
	Duration  time.Duration
}

// Reconciler brings persisted camera connectivity in line with the detection services.
type Reconciler struct {
	repo      repository.CamerasRepository
	checker   healthcheck.Checker
	publisher events.Publisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

// New builds a Reconciler. publisher may be nil when no events are wanted.
func New(
	repo repository.CamerasRepository,
	checker healthcheck.Checker,
	publisher events.Publisher,
	logger *zap.Logger,
	opts Options,
) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Reconciler{
		repo:      repo,
		checker:   checker,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

func (r *Reconciler) eligibleStatuses() []domain.CameraStatus {
	statuses := []domain.CameraStatus{domain.CameraStatusActive, domain.CameraStatusInactive}
	if r.opts.IncludeMaintenance {
		statuses = append(statuses, domain.CameraStatusMaintenance)
	}
	return statuses
}

type result int

const (
	resultUnchanged result = iota
	resultChanged
	resultStale
	resultFailed
	resultSkipped
)

// RunOnce performs one reconciliation pass over every eligible camera.
// Per-camera failures are logged and counted; they never abort the pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Summary, error) {
	start := r.now()

	cameras, err := r.repo.ListReconcilable(ctx, r.eligibleStatuses())
	if err != nil {
		return Summary{Duration: time.Since(start)}, err
	}

	var changed, unchanged, stale, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, cam := range cameras {
		g.Go(func() error {
			switch r.reconcileCamera(gctx, cam) {
			case resultChanged:
				changed.Add(1)
			case resultStale:
				stale.Add(1)
			case resultFailed:
				failed.Add(1)
			case resultSkipped:
				skipped.Add(1)
			default:
				unchanged.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{
		Checked:   len(cameras),
		Changed:   int(changed.Load()),
		Unchanged: int(unchanged.Load()),
		Stale:     int(stale.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
		Duration:  time.Since(start),
	}
	r.logger.Info("Camera reconciliation finished",
		zap.Int("checked", s.Checked),
		zap.Int("changed", s.Changed),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("stale", s.Stale),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Duration("duration", s.Duration),
	)
	return s, nil
}

func (r *Reconciler) reconcileCamera(ctx context.Context, cam *domain.Camera) result {
	if ctx.Err() != nil {
		return resultSkipped
	}

	res := r.checker.Check(ctx, cam.ServiceURL())
	if ctx.Err() != nil {
		// an aborted check says nothing about the service
		r.logger.Debug("Camera check cancelled", zap.String("camera_code", cam.Code))
		return resultSkipped
	}
	target := Resolve(res.Outcome, r.now())

	fields := []zap.Field{
		zap.String("camera_code", cam.Code),
		zap.String("outcome", res.Outcome.String()),
		zap.Int("http_status", res.StatusCode),
		zap.Duration("latency", res.Latency),
	}
	if res.Err != nil {
		fields = append(fields, zap.NamedError("check_error", res.Err))
	}
	if res.Report != nil {
		fields = append(fields,
			zap.Bool("yolo_status", res.Report.YoloStatus),
			zap.Bool("camera_status", res.Report.CameraStatus),
		)
	}

	if target.Status == cam.Status {
		r.logger.Debug("Camera connectivity unchanged", append(fields, zap.String("status", string(cam.Status)))...)
		return resultUnchanged
	}

	update := repository.ConnectivityUpdate{
		CameraID:        cam.ID,
		Status:          target.Status,
		DetectionOnline: target.DetectionOnline,
		ConnectedAt:     target.ConnectedAt,
		DisconnectedAt:  target.DisconnectedAt,
		UpdatedAt:       r.now(),
	}
	if r.opts.ConditionalWrites {
		update.ExpectedStatus = cam.Status
	}

	if err := r.repo.UpdateConnectivity(ctx, update); err != nil {
		if errors.Is(err, repository.ErrStaleCamera) {
			r.logger.Info("Camera changed during reconciliation, skipping write",
				append(fields, zap.String("expected_status", string(cam.Status)))...)
			return resultStale
		}
		r.logger.Error("Failed to update camera connectivity", append(fields, zap.Error(err))...)
		return resultFailed
	}

	r.logger.Info("Camera connectivity reconciled", append(fields,
		zap.String("previous_status", string(cam.Status)),
		zap.String("status", string(target.Status)),
	)...)

	if r.publisher != nil {
		r.publisher.Publish(events.NewCameraStatusChanged(
			cam.Code,
			target.Status,
			target.ConnectedAt,
			target.DisconnectedAt,
			events.SourceReconciler,
			update.UpdatedAt,
		))
	}
	return resultChanged
}
