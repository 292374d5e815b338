package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
)

// Session is the acknowledgment lifecycle of one presented alert.
// All methods are safe for concurrent use.
type Session struct {
	tracker    *Tracker
	ctx        context.Context //nolint:containedctx // Carries the logger for timer callbacks.
	thresholds Thresholds

	mu        sync.Mutex
	record    *alert.Record
	challenge *alert.Challenge
	timer     *time.Timer
	done      chan struct{}
}

// ID returns the alert ID.
func (s *Session) ID() uuid.UUID {
	return s.record.ID
}

// Request returns a copy of the alert request.
func (s *Session) Request() *alert.Request {
	return s.record.Request.Clone()
}

// Challenge returns the challenge that currently has to be answered, or nil.
func (s *Session) Challenge() *alert.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.challenge.Clone()
}

// Done is closed once the alert has a final outcome.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns a copy of the alert record.
func (s *Session) Snapshot() *alert.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record.Clone()
}

// Acknowledge records the user's acknowledgment. Alerts carrying a
// challenge must be acknowledged through Answer instead.
func (s *Session) Acknowledge() error {
	s.mu.Lock()

	if s.record.Outcome.Terminal() {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}

	if s.challenge != nil {
		s.mu.Unlock()
		return ErrChallengeRequired
	}

	n := s.acknowledgeLocked(time.Now())
	s.mu.Unlock()

	s.finish(n)

	return nil
}

// Answer checks answer against the current challenge. A correct answer
// acknowledges the alert. A wrong one replaces the challenge with a fresh
// one, returned as next, and leaves the alert pending.
func (s *Session) Answer(answer string) (bool, *alert.Challenge, error) {
	s.mu.Lock()

	if s.record.Outcome.Terminal() {
		s.mu.Unlock()
		return false, nil, ErrAlreadyResolved
	}

	if !s.challenge.Check(answer) {
		s.challenge = alert.NewArithmeticChallenge(s.tracker.src)
		next := s.challenge.Clone()
		s.mu.Unlock()

		logger.InfoKV(s.ctx, "Wrong challenge answer, issued a new challenge")

		return false, next, nil
	}

	n := s.acknowledgeLocked(time.Now())
	s.mu.Unlock()

	s.finish(n)

	return true, nil, nil
}

// Dismiss closes the alert without acknowledgment.
func (s *Session) Dismiss(reason DismissReason) error {
	s.mu.Lock()

	if s.record.Outcome.Terminal() {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}

	now := time.Now()
	minutes := s.elapsedMinutes(now)
	s.resolveLocked(alert.OutcomeDismissedUnacknowledged, now)
	s.mu.Unlock()

	subject, message := dismissalText(reason, minutes)
	s.finish(&pendingNotification{subject: subject, message: message, outcome: alert.OutcomeDismissedUnacknowledged})

	return nil
}

// timeout fires when the alert was not acknowledged in time.
func (s *Session) timeout() {
	s.mu.Lock()

	if s.record.Outcome.Terminal() {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	minutes := s.elapsedMinutes(now)
	s.resolveLocked(alert.OutcomeTimedOut, now)
	s.mu.Unlock()

	s.finish(&pendingNotification{
		subject: "Alert Not Acknowledged",
		message: fmt.Sprintf("The alert was not acknowledged after %.2f minutes.", minutes),
		outcome: alert.OutcomeTimedOut,
	})
}

// pendingNotification is built under the lock and sent after releasing it.
type pendingNotification struct {
	subject string
	message string
	outcome alert.Outcome
}

func (s *Session) acknowledgeLocked(now time.Time) *pendingNotification {
	elapsed := now.Sub(s.record.FiredAt)
	minutes := elapsed.Minutes()

	ackAt := now
	s.record.AcknowledgedAt = &ackAt

	if elapsed > s.thresholds.Late {
		s.resolveLocked(alert.OutcomeAcknowledgedLate, now)

		return &pendingNotification{
			subject: "Alert Acknowledged Late",
			message: fmt.Sprintf("The alert was acknowledged after %.2f minutes.", minutes),
			outcome: alert.OutcomeAcknowledgedLate,
		}
	}

	s.resolveLocked(alert.OutcomeAcknowledgedOnTime, now)

	return &pendingNotification{
		subject: "Alert Acknowledged",
		message: fmt.Sprintf("Alert acknowledged in %.2f minutes.", minutes),
		outcome: alert.OutcomeAcknowledgedOnTime,
	}
}

func (s *Session) resolveLocked(outcome alert.Outcome, now time.Time) {
	resolvedAt := now
	s.record.Outcome = outcome
	s.record.ResolvedAt = &resolvedAt

	if s.timer != nil {
		s.timer.Stop()
	}

	close(s.done)
}

func (s *Session) elapsedMinutes(now time.Time) float64 {
	return now.Sub(s.record.FiredAt).Minutes()
}

func (s *Session) finish(n *pendingNotification) {
	s.tracker.forget(s.record.ID)

	logger.InfoKV(s.ctx, "Alert resolved", "outcome", n.outcome, "subject", n.subject)

	if s.tracker.notifier != nil {
		s.tracker.notifier.Notify(s.ctx, n.subject, n.message)
	}
}

func dismissalText(reason DismissReason, minutes float64) (string, string) {
	switch reason {
	case ReasonShutdown:
		return "Alert Withdrawn At Shutdown",
			fmt.Sprintf("The alert was withdrawn at shutdown without acknowledgment after %.2f minutes.", minutes)
	case ReasonPresentationFailed:
		return "Alert Presentation Failed",
			fmt.Sprintf("The alert could not be shown and was dismissed after %.2f minutes.", minutes)
	default:
		return "Alert Window Closed Without Acknowledging",
			fmt.Sprintf("The alert window was closed without acknowledging after %.2f minutes.", minutes)
	}
}
