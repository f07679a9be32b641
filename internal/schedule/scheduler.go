// Package schedule triggers one pipeline run per day at a configured
// time of day.
package schedule

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paperpulse/paperpulse/internal/config"
)

// Scheduler fires a task daily. Overlapping triggers for the same task are
// dropped: a run still in flight when the next trigger fires wins, so two
// runs never target the same date concurrently.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	inFlight atomic.Bool
	logger   *slog.Logger
}

// New creates a Scheduler in the given timezone.
func New(timezone string, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		logger:   logger,
	}, nil
}

// Schedule registers the daily task at the given HH:MM time.
func (s *Scheduler) Schedule(sendTime string, task func()) error {
	hour, minute, err := parseTime(sendTime)
	if err != nil {
		return err
	}

	expr := fmt.Sprintf("%d %d * * *", minute, hour)
	_, err = s.cron.AddFunc(expr, func() { s.runGuarded(task) })
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}

	s.logger.Info("daily run scheduled", "time", sendTime, "cron", expr, "timezone", s.location.String())
	return nil
}

// runGuarded executes the task unless a previous trigger is still running.
func (s *Scheduler) runGuarded(task func()) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in flight, skipping trigger")
		return
	}
	defer s.inFlight.Store(false)
	task()
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop, waiting for a running task to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// parseTime extracts hour and minute from HH:MM format. Validation lives in
// config.ValidateTime so the daemon rejects exactly what config rejects.
func parseTime(t string) (int, int, error) {
	if err := config.ValidateTime(t); err != nil {
		return 0, 0, err
	}
	hour := int(t[0]-'0')*10 + int(t[1]-'0')
	minute := int(t[3]-'0')*10 + int(t[4]-'0')
	return hour, minute, nil
}
