package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	xlogger "CoinPulse/pkg/logger"
)

// Tick outcomes, used as the metrics label.
const (
	TickOK             = "ok"
	TickSkippedOverlap = "skipped_overlap"
	TickSkippedNoData  = "skipped_no_data"
	TickStoreError     = "store_error"
	TickError          = "error"
	TickPanic          = "panic"
)

// Collector is one unit of scheduled work.
type Collector interface {
	Collect(ctx context.Context) (*models.Snapshot, error)
}

// Scheduler runs a Collector on a fixed interval. Runs never overlap: a tick that
// fires while the previous run is in flight is skipped, not queued.
type Scheduler struct {
	job        Collector
	interval   time.Duration
	runOnStart bool
	metrics    domrepo.Metrics
	logger     *xlogger.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// SchedulerOption configures Scheduler.
type SchedulerOption func(*Scheduler)

func WithRunOnStart(v bool) SchedulerOption {
	return func(s *Scheduler) { s.runOnStart = v }
}

func WithSchedulerLogger(l *xlogger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewScheduler(job Collector, interval time.Duration, metrics domrepo.Metrics, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	s := &Scheduler{
		job:      job,
		interval: interval,
		metrics:  metrics,
		logger:   xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, then waits for an in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		xlogger.Duration("interval_ms", s.interval),
		xlogger.Bool("run_on_start", s.runOnStart),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.Trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a run in the background unless one is in flight. It reports
// whether a run was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RecordTick(TickSkippedOverlap)
		s.logger.Warn("previous collection still running, skipping tick")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.metrics.RecordTick(s.runOnce(ctx))
	}()
	return true
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Wait blocks until the in-flight run, if any, returns.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) runOnce(ctx context.Context) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("collection panicked",
				xlogger.Error(fmt.Errorf("%v", r)),
				xlogger.String("stack", string(debug.Stack())),
			)
			result = TickPanic
		}
	}()

	_, err := s.job.Collect(ctx)
	switch {
	case err == nil:
		return TickOK
	case errors.Is(err, models.ErrNoSourceData):
		s.logger.Warn("tick skipped: no source data")
		return TickSkippedNoData
	case errors.Is(err, models.ErrStoreUnavailable):
		s.logger.Error("tick failed: store unavailable", xlogger.Error(err))
		return TickStoreError
	default:
		s.logger.Error("tick failed", xlogger.Error(err))
		return TickError
	}
}
