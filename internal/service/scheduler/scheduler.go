package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/loop"
	"github.com/oshokin/attention-check/internal/shutdown"
)

// Name identifies the loop in logs and failure reports.
const Name = "Scheduler"

// Submitter presents an alert and waits for its outcome.
type Submitter interface {
	Submit(ctx context.Context, req *alert.Request) (*alert.Record, error)
}

// Settings provides the current configuration.
type Settings interface {
	Current() *config.Config
}

// Scheduler fires one alert at a random moment of the remaining window,
// waits for it to be resolved and starts over.
type Scheduler struct {
	settings  Settings
	submitter Submitter
	notifier  loop.Notifier
	src       alert.Intn
	backoff   time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source for wait times.
func WithRand(src alert.Intn) Option {
	return func(s *Scheduler) {
		s.src = src
	}
}

// WithBackoff sets the pause after a failed cycle.
func WithBackoff(backoff time.Duration) Option {
	return func(s *Scheduler) {
		s.backoff = backoff
	}
}

// New creates a scheduler.
func New(settings Settings, submitter Submitter, notifier loop.Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings:  settings,
		submitter: submitter,
		notifier:  notifier,
		backoff:   loop.DefaultBackoff,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run fires alerts until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	return loop.Run(ctx, Name, s.notifier, s.cycle, loop.WithBackoff(s.backoff))
}

// cycle performs one step of the waiting, firing and cooling down sequence.
func (s *Scheduler) cycle(ctx context.Context) error {
	cfg := s.settings.Current()
	window := cfg.Window()
	poll := cfg.Schedule.PollInterval

	now := time.Now()
	start, end := window.ActiveInterval(now)

	switch {
	case now.Before(start):
		// Capped so that a changed window is noticed before its old start.
		wait := min(start.Sub(now), poll)

		logger.DebugKV(ctx, "Waiting for the alert window", "window", window.String(), "wait", wait)
		shutdown.Sleep(ctx, wait)

		return nil
	case !now.Before(end):
		shutdown.Sleep(ctx, poll)

		return nil
	}

	wait := loop.Between(s.src, 0, end.Sub(now))

	logger.InfoKV(ctx, "Next alert scheduled", "at", now.Add(wait).Format(time.TimeOnly), "window", window.String())

	if !shutdown.Sleep(ctx, wait) {
		return nil
	}

	// The window may have been changed or left while sleeping.
	cfg = s.settings.Current()
	if !cfg.Window().IsActive(time.Now()) {
		logger.Info(ctx, "Alert window closed while waiting, skipping alert")

		return nil
	}

	record, err := s.submitter.Submit(ctx, &alert.Request{
		Message:   cfg.Alert.Message,
		PlaySound: true,
		Source:    alert.SourceScheduled,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("submit scheduled alert: %w", err)
	}

	logger.InfoKV(ctx, "Scheduled alert resolved", "alert_id", record.ID.String(), "outcome", record.Outcome)

	minimum, maximum := cfg.WaitRange()
	shutdown.Sleep(ctx, loop.Between(s.src, minimum, maximum))

	return nil
}
