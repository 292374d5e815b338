package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/attention-check/internal/audio"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

// Presenter shows an alert and lets the user resolve its session.
// Present blocks until the surface is gone. It must return promptly once
// ctx is done, which happens when the session is resolved elsewhere or
// the process is stopping.
type Presenter interface {
	Present(ctx context.Context, session *tracker.Session) error
}

// Player plays sound clips.
type Player interface {
	Play(path string, loop bool) (audio.Handle, error)
}

// Notifier receives escalation notifications.
type Notifier interface {
	Notify(ctx context.Context, subject, message string)
}

// Settings provides the current configuration.
type Settings interface {
	Current() *config.Config
}

var (
	// errNilRequest is returned when Submit is called without a request.
	errNilRequest = errors.New("alert request is required")
	// errPresenterPanicked wraps a recovered presenter panic.
	errPresenterPanicked = errors.New("presenter panicked")
)

// ticket is a place in the waiting line.
type ticket struct {
	// ready is closed when the ticket owns the presentation slot.
	ready chan struct{}
}

// Dispatcher presents one alert at a time.
type Dispatcher struct {
	tracker   *tracker.Tracker
	presenter Presenter
	player    Player
	notifier  Notifier
	settings  Settings
	src       alert.Intn

	mu       sync.Mutex
	busy     bool
	queue    []*ticket
	inFlight *tracker.Session
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPlayer enables alert sounds.
func WithPlayer(player Player) Option {
	return func(d *Dispatcher) {
		d.player = player
	}
}

// WithRand sets the random source used to pick custom clips.
func WithRand(src alert.Intn) Option {
	return func(d *Dispatcher) {
		d.src = src
	}
}

// New creates a dispatcher.
func New(
	settings Settings,
	tr *tracker.Tracker,
	presenter Presenter,
	notifier Notifier,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		tracker:   tr,
		presenter: presenter,
		notifier:  notifier,
		settings:  settings,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Submit waits for its turn, presents req and blocks until the alert has a
// final outcome. The returned record is a snapshot of that outcome.
//
// If ctx is done while waiting, the submission leaves the line and ctx's
// error is returned. If ctx is done while presenting, the alert is
// withdrawn and dismissed.
func (d *Dispatcher) Submit(ctx context.Context, req *alert.Request) (*alert.Record, error) {
	if req == nil {
		return nil, errNilRequest
	}

	if err := d.acquire(ctx); err != nil {
		return nil, err
	}

	defer d.release()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("wait for alert slot: %w", err)
	}

	cfg := d.settings.Current()
	record := alert.NewRecord(req, time.Now())
	session := d.tracker.Track(ctx, record, tracker.Thresholds{
		Late:              cfg.LateAfter(),
		NeverAcknowledged: cfg.EscalateAfter(),
	})

	ctx = logger.WithFields(ctx, "alert_id", record.ID.String(), "source", req.Source)

	d.setInFlight(session)
	defer d.setInFlight(nil)

	if req.PlaySound {
		stopSound := d.startSound(ctx, cfg)
		defer stopSound()
	}

	presentCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Withdraw the surface as soon as the session is resolved elsewhere.
	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-presentCtx.Done():
		}
	}()

	presentErr := d.present(presentCtx, session)

	reason := tracker.ReasonClosed

	switch {
	case ctx.Err() != nil:
		reason = tracker.ReasonShutdown
	case presentErr != nil:
		reason = tracker.ReasonPresentationFailed

		logger.ErrorKV(ctx, "Alert presentation failed", "error", presentErr)
	}

	if err := session.Dismiss(reason); err == nil {
		logger.InfoKV(ctx, "Alert dismissed without acknowledgment", "reason", reason)
	}

	<-session.Done()

	return session.Snapshot(), nil
}

// InFlight returns a snapshot of the alert being presented, or nil.
func (d *Dispatcher) InFlight() *alert.Record {
	d.mu.Lock()
	session := d.inFlight
	d.mu.Unlock()

	if session == nil {
		return nil
	}

	return session.Snapshot()
}

// Pending returns the number of submissions waiting for their turn.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queue)
}

// acquire blocks until the caller owns the presentation slot.
func (d *Dispatcher) acquire(ctx context.Context) error {
	d.mu.Lock()

	if !d.busy && len(d.queue) == 0 {
		d.busy = true
		d.mu.Unlock()

		return nil
	}

	t := &ticket{ready: make(chan struct{})}
	d.queue = append(d.queue, t)
	d.mu.Unlock()

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
	}

	d.mu.Lock()

	select {
	case <-t.ready:
		// The slot was handed over while giving up, pass it on.
		d.mu.Unlock()
		d.release()
	default:
		d.queue = slices.DeleteFunc(d.queue, func(other *ticket) bool {
			return other == t
		})
		d.mu.Unlock()
	}

	return fmt.Errorf("wait for alert slot: %w", ctx.Err())
}

// release hands the slot to the oldest waiter or frees it.
func (d *Dispatcher) release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		d.busy = false
		return
	}

	next := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]

	close(next.ready)
}

func (d *Dispatcher) setInFlight(session *tracker.Session) {
	d.mu.Lock()
	d.inFlight = session
	d.mu.Unlock()
}

// present calls the presenter, turning a panic into an error.
func (d *Dispatcher) present(ctx context.Context, session *tracker.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPresenterPanicked, r)
		}
	}()

	return d.presenter.Present(ctx, session)
}

// startSound loops the alert clip and returns the function that stops it.
func (d *Dispatcher) startSound(ctx context.Context, cfg *config.Config) func() {
	if d.player == nil {
		return func() {}
	}

	clip := audio.SelectClip(cfg.Sound, cfg.Sound.AlertClip, d.src)

	handle, err := d.player.Play(clip, true)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to play alert sound", "clip", clip, "error", err)
		d.notifier.Notify(ctx, "Sound Error", fmt.Sprintf("Unable to play %s: %v", clip, err))

		return func() {}
	}

	return handle.Stop
}
