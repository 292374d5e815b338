package alert

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the resolution state of an alert.
type Outcome string

const (
	// OutcomePending means the alert is still awaiting a resolution.
	OutcomePending Outcome = "pending"
	// OutcomeAcknowledgedOnTime means the user acknowledged within the late threshold.
	OutcomeAcknowledgedOnTime Outcome = "acknowledged_on_time"
	// OutcomeAcknowledgedLate means the user acknowledged after the late threshold.
	OutcomeAcknowledgedLate Outcome = "acknowledged_late"
	// OutcomeTimedOut means nobody acknowledged before the outer bound.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeDismissedUnacknowledged means the alert was closed without acknowledgment.
	OutcomeDismissedUnacknowledged Outcome = "dismissed_unacknowledged"
)

// Terminal reports whether the outcome is final.
func (o Outcome) Terminal() bool {
	return o != OutcomePending && o != ""
}

// Acknowledged reports whether the outcome involves a user acknowledgment.
func (o Outcome) Acknowledged() bool {
	return o == OutcomeAcknowledgedOnTime || o == OutcomeAcknowledgedLate
}

// Record tracks one presented alert.
type Record struct {
	// ID uniquely identifies the alert.
	ID uuid.UUID
	// Request is the request this alert was built from.
	Request *Request
	// FiredAt is when the alert was handed to the presenter.
	FiredAt time.Time
	// AcknowledgedAt is set when the user acknowledged.
	AcknowledgedAt *time.Time
	// ResolvedAt is set once the outcome becomes terminal.
	ResolvedAt *time.Time
	// Outcome is the current resolution state.
	Outcome Outcome
}

// NewRecord creates a pending record for req fired at firedAt.
func NewRecord(req *Request, firedAt time.Time) *Record {
	return &Record{
		ID:      uuid.New(),
		Request: req.Clone(),
		FiredAt: firedAt,
		Outcome: OutcomePending,
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Request = r.Request.Clone()
	cloned.AcknowledgedAt = cloneTime(r.AcknowledgedAt)
	cloned.ResolvedAt = cloneTime(r.ResolvedAt)

	return &cloned
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
