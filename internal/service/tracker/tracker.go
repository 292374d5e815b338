package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
)

// Notifier receives escalation notifications.
type Notifier interface {
	Notify(ctx context.Context, subject, message string)
}

// Thresholds bound how long an alert may wait for acknowledgment.
type Thresholds struct {
	// Late marks acknowledgments that took longer than this as late.
	Late time.Duration
	// NeverAcknowledged resolves the alert as timed out. Zero disables the timeout.
	NeverAcknowledged time.Duration
}

// DismissReason explains why an alert was closed without acknowledgment.
type DismissReason string

const (
	// ReasonClosed means the user closed the alert surface.
	ReasonClosed DismissReason = "closed"
	// ReasonShutdown means the process withdrew the alert while stopping.
	ReasonShutdown DismissReason = "shutdown"
	// ReasonPresentationFailed means the alert surface could not be shown.
	ReasonPresentationFailed DismissReason = "presentation_failed"
)

var (
	// ErrAlreadyResolved is returned when a session already has a final outcome.
	ErrAlreadyResolved = errors.New("alert is already resolved")
	// ErrChallengeRequired is returned when acknowledging an alert that needs an answer.
	ErrChallengeRequired = errors.New("alert requires an answer to its challenge")
	// ErrNotFound is returned when no unresolved alert has the requested ID.
	ErrNotFound = errors.New("alert not found")
)

// Tracker creates sessions and keeps the unresolved ones addressable by ID.
type Tracker struct {
	notifier Notifier
	src      alert.Intn

	mu     sync.RWMutex
	active map[uuid.UUID]*Session
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRand sets the random source used for replacement challenges.
func WithRand(src alert.Intn) Option {
	return func(t *Tracker) {
		t.src = src
	}
}

// New returns a tracker that reports outcomes to notifier.
func New(notifier Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		notifier: notifier,
		active:   make(map[uuid.UUID]*Session),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Track starts following record. The record must be pending and is owned
// by the session from now on.
func (t *Tracker) Track(ctx context.Context, record *alert.Record, thresholds Thresholds) *Session {
	ctx = logger.WithKV(context.WithoutCancel(ctx), "alert_id", record.ID.String())

	s := &Session{
		tracker:    t,
		ctx:        ctx,
		thresholds: thresholds,
		record:     record,
		challenge:  record.Request.Challenge.Clone(),
		done:       make(chan struct{}),
	}

	t.mu.Lock()
	t.active[record.ID] = s
	t.mu.Unlock()

	if thresholds.NeverAcknowledged > 0 {
		s.mu.Lock()
		s.timer = time.AfterFunc(thresholds.NeverAcknowledged, s.timeout)
		s.mu.Unlock()
	}

	logger.InfoKV(ctx, "Alert presented",
		"source", record.Request.Source,
		"late_after", thresholds.Late,
		"escalate_after", thresholds.NeverAcknowledged)

	return s
}

// Lookup returns the unresolved session with the given ID.
func (t *Tracker) Lookup(id uuid.UUID) (*Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.active[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return s, nil
}

func (t *Tracker) forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.active, id)
	t.mu.Unlock()
}
