// Package schedule runs a job on wall-clock boundaries of a fixed interval.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tradehelper/pkg/metrics"

	"go.uber.org/zap"
)

// Job is one run of the scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs its job at every interval boundary (e.g. the top of every
// minute). A run that is still in progress when the
// next boundary arrives causes that boundary to be skipped.
type Scheduler struct {
	interval time.Duration
	job      Job
	log      *zap.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

func New(interval time.Duration, job Job, log *zap.Logger, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Scheduler{
		interval: interval,
		job:      job,
		log:      log,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextBoundary returns the first multiple of interval strictly after now.
func NextBoundary(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// Start blocks until ctx is cancelled, then waits for the run in progress.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := NextBoundary(s.now(), s.interval)
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.after(next.Sub(s.now())):
			s.trigger(ctx)
		}
	}
}

// trigger starts the job unless a previous run is still going.
func (s *Scheduler) trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous run still in progress, skipping")
		metrics.Ticks.WithLabelValues("skipped").Inc()
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		start := s.now()
		if err := s.job(ctx); err != nil {
			s.log.Error("scheduled run failed", zap.Error(err), zap.Duration("took", s.now().Sub(start)))
			return
		}
		s.log.Debug("scheduled run done", zap.Duration("took", s.now().Sub(start)))
	}()
	return true
}
