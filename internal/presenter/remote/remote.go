package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

// Action is a client's response to an alert.
type Action string

const (
	// ActionAcknowledge acknowledges an alert without a challenge.
	ActionAcknowledge Action = "acknowledge"
	// ActionAnswer answers the alert's challenge.
	ActionAnswer Action = "answer"
	// ActionDismiss closes the alert without acknowledging.
	ActionDismiss Action = "dismiss"
)

// ErrUnknownAction is returned for actions Respond does not understand.
var ErrUnknownAction = errors.New("unknown alert action")

// Result is the effect of a response.
type Result struct {
	// Resolved reports whether the alert now has a final outcome.
	Resolved bool
	// Challenge is the next question after a wrong answer.
	Challenge *alert.Challenge
	// Record is a snapshot of the alert after the response.
	Record *alert.Record
}

// Presenter publishes alerts and waits for a remote resolution.
type Presenter struct{}

// New creates a remote presenter.
func New() *Presenter {
	return new(Presenter)
}

// Present blocks until ctx is done. The dispatcher cancels ctx as soon as
// the session is resolved.
func (p *Presenter) Present(ctx context.Context, session *tracker.Session) error {
	logger.InfoKV(ctx, "Alert waiting for a remote response",
		"alert_id", session.ID().String(),
		"has_challenge", session.Challenge() != nil)

	<-ctx.Done()

	return nil
}

// Sessions finds unresolved alerts by ID.
type Sessions interface {
	Lookup(id uuid.UUID) (*tracker.Session, error)
}

// Respond applies a client's action to the unresolved alert id.
func Respond(sessions Sessions, id uuid.UUID, action Action, answer string) (*Result, error) {
	session, err := sessions.Lookup(id)
	if err != nil {
		return nil, err
	}

	result := new(Result)

	switch action {
	case ActionAcknowledge:
		err = session.Acknowledge()
	case ActionAnswer:
		var correct bool

		correct, result.Challenge, err = session.Answer(answer)
		if err == nil && !correct {
			result.Record = session.Snapshot()

			return result, nil
		}
	case ActionDismiss:
		err = session.Dismiss(tracker.ReasonClosed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if err != nil {
		return nil, fmt.Errorf("%s alert %s: %w", action, id, err)
	}

	result.Resolved = true
	result.Record = session.Snapshot()

	return result, nil
}
