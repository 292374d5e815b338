package loop

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/shutdown"
)

// DefaultBackoff is the pause after a failed cycle.
const DefaultBackoff = 60 * time.Second

// Notifier receives failure reports.
type Notifier interface {
	Notify(ctx context.Context, subject, message string)
}

// Cycle is one iteration of a loop. A cycle that sleeps must return
// promptly once ctx is done.
type Cycle func(ctx context.Context) error

// Option configures Run.
type Option func(*runner)

// WithBackoff overrides DefaultBackoff.
func WithBackoff(backoff time.Duration) Option {
	return func(r *runner) {
		if backoff > 0 {
			r.backoff = backoff
		}
	}
}

type runner struct {
	name     string
	notifier Notifier
	backoff  time.Duration
}

// Run calls cycle until ctx is done. Name is used in logs and in the
// subject of failure reports, for example "Scheduler Error".
// Run always returns nil once ctx is done.
func Run(ctx context.Context, name string, notifier Notifier, cycle Cycle, opts ...Option) error {
	r := &runner{
		name:     name,
		notifier: notifier,
		backoff:  DefaultBackoff,
	}

	for _, opt := range opts {
		opt(r)
	}

	ctx = logger.WithName(ctx, strings.ToLower(strings.ReplaceAll(name, " ", "-")))

	logger.Info(ctx, "Loop started")
	defer logger.Info(ctx, "Loop stopped")

	for ctx.Err() == nil {
		err := r.runCycle(ctx, cycle)
		if err == nil || ctx.Err() != nil {
			continue
		}

		logger.ErrorKV(ctx, "Loop cycle failed", "error", err, "backoff", r.backoff)

		if r.notifier != nil {
			r.notifier.Notify(ctx, name+" Error", fmt.Sprintf("An error occurred in %s: %v", name, err))
		}

		shutdown.Sleep(ctx, r.backoff)
	}

	return nil
}

// runCycle calls cycle, turning a panic into an error.
func (r *runner) runCycle(ctx context.Context, cycle Cycle) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()

	return cycle(ctx)
}

// Between returns a random duration in [minimum, maximum] with one second
// granularity. A nil src uses the global generator.
func Between(src alert.Intn, minimum, maximum time.Duration) time.Duration {
	if maximum <= minimum {
		return minimum
	}

	intn := rand.IntN
	if src != nil {
		intn = src.IntN
	}

	span := int((maximum - minimum) / time.Second)
	if span <= 0 {
		return minimum
	}

	return minimum + time.Duration(intn(span+1))*time.Second
}
