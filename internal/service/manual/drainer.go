package manual

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/loop"
)

const (
	// Name identifies the loop in logs and failure reports.
	Name = "Manual Queue"

	// dequeueTimeout bounds how long an idle drainer waits before looking
	// at the context again.
	dequeueTimeout = time.Second
)

// Submitter presents an alert and waits for its outcome.
type Submitter interface {
	Submit(ctx context.Context, req *alert.Request) (*alert.Record, error)
}

// Drainer forwards queued requests to the dispatcher.
type Drainer struct {
	queue     *Queue
	submitter Submitter
	notifier  loop.Notifier
	backoff   time.Duration
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithBackoff sets the pause after a failed cycle.
func WithBackoff(backoff time.Duration) DrainerOption {
	return func(d *Drainer) {
		d.backoff = backoff
	}
}

// NewDrainer creates a drainer for queue.
func NewDrainer(queue *Queue, submitter Submitter, notifier loop.Notifier, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		queue:     queue,
		submitter: submitter,
		notifier:  notifier,
		backoff:   loop.DefaultBackoff,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run drains the queue until ctx is done. Requests still queued at that
// point are dropped.
func (d *Drainer) Run(ctx context.Context) error {
	err := loop.Run(ctx, Name, d.notifier, d.cycle, loop.WithBackoff(d.backoff))

	if left := d.queue.Len(); left > 0 {
		logger.WarnKV(ctx, "Manual alerts dropped at shutdown", "count", left)
	}

	return err
}

func (d *Drainer) cycle(ctx context.Context) error {
	req, ok := d.queue.Dequeue(ctx, dequeueTimeout)
	if !ok {
		return nil
	}

	record, err := d.submitter.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("submit manual alert: %w", err)
	}

	logger.InfoKV(ctx, "Manual alert resolved",
		"alert_id", record.ID.String(),
		"requested_by", req.RequestedBy,
		"outcome", record.Outcome)

	return nil
}
