package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulerStatus is the operator-visible view of the loop.
type SchedulerStatus struct {
	Running       bool          `json:"running"`
	EpochsRun     int64         `json:"epochs_run"`
	EpochsSkipped int64         `json:"epochs_skipped"`
	LastEpochAt   *time.Time    `json:"last_epoch_at,omitempty"`
	LastDuration  time.Duration `json:"last_duration_ns"`
	LastError     string        `json:"last_error,omitempty"`
}

// Scheduler drives the epoch runner on a fixed timer. Epochs never overlap:
// a tick arriving while an epoch is still running is skipped and logged, not
// queued.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	logger   *logrus.Logger

	inEpoch atomic.Bool

	mu     sync.Mutex
	status SchedulerStatus
}

func NewScheduler(runner *Runner, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, executing an epoch immediately and then
// once per interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce executes a single epoch, honoring the re-entrancy guard. Used by
// the operator CLI.
func (s *Scheduler) RunOnce(ctx context.Context) (*EpochReport, error) {
	if !s.inEpoch.CompareAndSwap(false, true) {
		s.logger.Warn("epoch already in progress")
		return nil, nil
	}
	defer s.inEpoch.Store(false)
	return s.execute(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.inEpoch.CompareAndSwap(false, true) {
		s.logger.Warn("previous epoch still running, tick skipped")
		s.mu.Lock()
		s.status.EpochsSkipped++
		s.mu.Unlock()
		return
	}
	defer s.inEpoch.Store(false)

	if _, err := s.execute(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("epoch failed")
	}
}

func (s *Scheduler) execute(ctx context.Context) (*EpochReport, error) {
	report, err := s.runner.RunEpoch(ctx)

	now := time.Now().UTC()
	s.mu.Lock()
	s.status.EpochsRun++
	s.status.LastEpochAt = &now
	if report != nil {
		s.status.LastDuration = report.Duration
	}
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	s.mu.Unlock()

	return report, err
}

// Status returns a copy of the current loop status.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.inEpoch.Load()
	return st
}
