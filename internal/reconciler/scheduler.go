package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Runner is one reconciliation pass.
type Runner interface {
	RunOnce(ctx context.Context) (Summary, error)
}

// Scheduler fires a Runner on a fixed interval. A tick that arrives while the
// previous pass is still running is skipped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger

	running atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup
}

func NewScheduler(runner Runner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start runs a pass immediately and then on every tick until ctx is cancelled.
// It returns once the in-flight pass has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Camera health scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("Camera health scheduler stopped", zap.Int64("skipped_ticks", s.skipped.Load()))
			return nil
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts a pass in the background unless one is already running.
func (s *Scheduler) trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("Previous reconciliation still running, skipping tick")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run(ctx)
	}()
	return true
}

// RunOnce runs a single pass in the caller's goroutine, honouring the overlap guard.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return Summary{}, ErrPassInProgress
	}
	defer s.running.Store(false)
	return s.runner.RunOnce(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.runner.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Camera reconciliation failed", zap.Error(err))
	}
}

// Skipped returns how many ticks were dropped by the overlap guard.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }
