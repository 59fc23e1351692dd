// Package scheduler runs work on drift-corrected wall-clock boundaries.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/timeutil"
)

// WindowFunc processes the window [start, end).
type WindowFunc func(ctx context.Context, start, end time.Time) error

// DayFunc processes the local calendar day starting at day.
type DayFunc func(ctx context.Context, day time.Time) error

// Scheduler owns the short-cadence and daily loops.
type Scheduler struct {
	clock  timeutil.Clock
	loc    *time.Location
	width  time.Duration
	logger *logger.Logger
}

// New creates a Scheduler ticking every cfg.BucketWidth in cfg's timezone.
func New(cfg *config.Config, clock timeutil.Clock, logger *logger.Logger) *Scheduler {
	width := cfg.BucketWidth
	if width <= 0 {
		width = time.Minute
	}
	return &Scheduler{clock: clock, loc: cfg.Location(), width: width, logger: logger}
}

// RunShortCadence calls fn for each completed window until ctx is cancelled.
// The next boundary is always taken from the clock after a run finishes, so
// a slow run never shifts later windows off the wall-clock grid.
func (s *Scheduler) RunShortCadence(ctx context.Context, fn WindowFunc) {
	for {
		now := s.clock.Now()
		end := NextBoundary(now, s.width, s.loc)
		s.logger.Info("Next window task at %s (in %s)", end.Format(time.DateTime), end.Sub(now))

		if !s.sleep(ctx, end.Sub(now)) {
			s.logger.Info("Window scheduler stopped")
			return
		}

		start := end.Add(-s.width)
		s.runTick(ctx, fmt.Sprintf("window %s-%s", start.Format(time.TimeOnly), end.Format(time.TimeOnly)), func() error {
			return fn(ctx, start, end)
		})
	}
}

// RunDailyCadence calls fn at every local midnight for the day that just ended.
func (s *Scheduler) RunDailyCadence(ctx context.Context, fn DayFunc) {
	for {
		now := s.clock.Now()
		midnight := NextMidnight(now, s.loc)
		s.logger.Info("Next daily task at %s (in %s)", midnight.Format(time.DateTime), midnight.Sub(now))

		if !s.sleep(ctx, midnight.Sub(now)) {
			s.logger.Info("Daily scheduler stopped")
			return
		}

		day := time.Date(midnight.Year(), midnight.Month(), midnight.Day()-1, 0, 0, 0, 0, s.loc)
		s.runTick(ctx, "daily "+day.Format(time.DateOnly), func() error {
			return fn(ctx, day)
		})
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

// runTick executes one iteration; errors and panics are logged and swallowed.
func (s *Scheduler) runTick(ctx context.Context, name string, work func() error) {
	started := s.clock.Now()
	s.logger.Info("Starting %s", name)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled %s panicked: %v", name, r)
		}
	}()

	if err := work(); err != nil {
		s.logger.Error("Scheduled %s failed: %v", name, err)
		return
	}
	s.logger.Info("Completed %s in %s", name, s.clock.Now().Sub(started))
}

// NextBoundary returns the first width boundary, counted from local
// midnight, strictly after now.
func NextBoundary(now time.Time, width time.Duration, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := local.Sub(midnight)
	next := midnight.Add(offset - offset%width + width)

	// A width that does not divide the day restarts at the next midnight.
	if tomorrow := midnight.AddDate(0, 0, 1); next.After(tomorrow) {
		return tomorrow
	}
	return next
}

// NextMidnight returns the first local midnight strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
