package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/attention-check/internal/logger"
)

// Notification is a single escalation message.
type Notification struct {
	// Subject is the short title, for example "Alert Acknowledged Late".
	Subject string
	// Message is the body text.
	Message string
	// At is when the notification was raised.
	At time.Time
}

// Sink delivers notifications somewhere.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Send delivers n or returns an error.
	Send(ctx context.Context, n Notification) error
}

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 5 * time.Second
)

// errClosed is returned by Close when the notifier was already closed.
var errClosed = errors.New("notifier is closed")

// Option configures an Async notifier.
type Option func(*Async)

// WithQueueSize sets the capacity of the pending queue.
func WithQueueSize(size int) Option {
	return func(a *Async) {
		if size > 0 {
			a.queueSize = size
		}
	}
}

// WithSendTimeout bounds every sink delivery.
func WithSendTimeout(timeout time.Duration) Option {
	return func(a *Async) {
		if timeout > 0 {
			a.sendTimeout = timeout
		}
	}
}

// WithClock overrides the time source used to stamp notifications.
func WithClock(now func() time.Time) Option {
	return func(a *Async) {
		if now != nil {
			a.now = now
		}
	}
}

// Async queues notifications and delivers them from a single worker.
type Async struct {
	// sinks receive every notification in order.
	sinks []Sink
	// queue holds notifications waiting for delivery.
	queue chan Notification
	// done is closed when the worker has drained the queue.
	done chan struct{}

	queueSize   int
	sendTimeout time.Duration
	now         func() time.Time

	// mu guards closed against concurrent Notify and Close.
	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the delivery worker. ctx only carries the logger and
// does not stop the worker, call Close for that.
func NewAsync(ctx context.Context, sinks []Sink, opts ...Option) *Async {
	a := &Async{
		sinks:       sinks,
		done:        make(chan struct{}),
		queueSize:   defaultQueueSize,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.queue = make(chan Notification, a.queueSize)

	go a.work(logger.WithName(context.WithoutCancel(ctx), "notify"))

	return a
}

// Notify queues a notification. It never blocks.
func (a *Async) Notify(ctx context.Context, subject, message string) {
	n := Notification{
		Subject: subject,
		Message: message,
		At:      a.now(),
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		logger.WarnKV(ctx, "Notification dropped after shutdown", "subject", subject)
		return
	}

	select {
	case a.queue <- n:
	default:
		logger.WarnKV(ctx, "Notification queue is full, dropping", "subject", subject)
	}
}

// Close stops accepting notifications and waits until the queue is
// drained or ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return errClosed
	}

	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) work(ctx context.Context) {
	defer close(a.done)

	for n := range a.queue {
		for _, sink := range a.sinks {
			a.deliver(ctx, sink, n)
		}
	}
}

func (a *Async) deliver(ctx context.Context, sink Sink, n Notification) {
	sendCtx, cancel := context.WithTimeout(ctx, a.sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Notification sink panicked", "sink", sink.Name(), "panic", r)
		}
	}()

	if err := sink.Send(sendCtx, n); err != nil {
		logger.ErrorKV(ctx, "Notification delivery failed",
			"sink", sink.Name(),
			"subject", n.Subject,
			"error", err)
	}
}
