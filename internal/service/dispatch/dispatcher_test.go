package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-check/internal/audio"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

var (
	errTestPresent = errors.New("display is gone")
	errTestSound   = errors.New("no audio device")
)

// recordingNotifier keeps notification subjects.
type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingNotifier) Notify(_ context.Context, subject, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subjects = append(r.subjects, subject)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.subjects...)
}

// scriptedPresenter runs a per-call behavior and records overlap and order.
type scriptedPresenter struct {
	mu        sync.Mutex
	order     []string
	active    atomic.Int32
	maxActive atomic.Int32
	behave    func(ctx context.Context, s *tracker.Session) error
}

func (p *scriptedPresenter) Present(ctx context.Context, s *tracker.Session) error {
	current := p.active.Add(1)
	defer p.active.Add(-1)

	for {
		previous := p.maxActive.Load()
		if current <= previous || p.maxActive.CompareAndSwap(previous, current) {
			break
		}
	}

	p.mu.Lock()
	p.order = append(p.order, s.Request().Message)
	p.mu.Unlock()

	return p.behave(ctx, s)
}

func (p *scriptedPresenter) presented() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.order...)
}

// acknowledgeAfter acknowledges once d has passed.
func acknowledgeAfter(d time.Duration) func(context.Context, *tracker.Session) error {
	return func(ctx context.Context, s *tracker.Session) error {
		select {
		case <-time.After(d):
			_ = s.Acknowledge()
		case <-ctx.Done():
		}

		return nil
	}
}

// waitUntilWithdrawn blocks until the dispatcher withdraws the surface.
func waitUntilWithdrawn(ctx context.Context, _ *tracker.Session) error {
	<-ctx.Done()

	return nil
}

// fakePlayer records playbacks.
type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	loops   []bool
	stopped atomic.Int32
	err     error
}

type fakeHandle struct {
	player *fakePlayer
}

func (h fakeHandle) Stop() {
	h.player.stopped.Add(1)
}

//nolint:ireturn // Matches the Player interface.
func (p *fakePlayer) Play(path string, loop bool) (audio.Handle, error) {
	if p.err != nil {
		return nil, p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.played = append(p.played, path)
	p.loops = append(p.loops, loop)

	return fakeHandle{player: p}, nil
}

func newDispatcher(presenter Presenter, notifier *recordingNotifier, opts ...Option) *Dispatcher {
	return New(config.NewHolder(config.Default()), tracker.New(notifier), presenter, notifier, opts...)
}

// TestSubmit_SerializesInArrivalOrder checks single-flight presentation in FIFO order.
func TestSubmit_SerializesInArrivalOrder(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		presenter := &scriptedPresenter{behave: acknowledgeAfter(30 * time.Second)}
		d := newDispatcher(presenter, new(recordingNotifier))

		var wg sync.WaitGroup

		outcomes := make([]alert.Outcome, 5)

		for i := range 5 {
			message := fmt.Sprintf("alert-%d", i)

			wg.Go(func() {
				record, err := d.Submit(context.Background(), &alert.Request{Message: message, Source: alert.SourceManual})
				if err == nil {
					outcomes[i] = record.Outcome
				}
			})

			// Stagger the arrivals so the expected order is well defined.
			time.Sleep(time.Second)
		}

		synctest.Wait()
		require.Equal(t, 4, d.Pending())
		require.Equal(t, "alert-0", d.InFlight().Request.Message)

		wg.Wait()

		for _, outcome := range outcomes {
			require.Equal(t, alert.OutcomeAcknowledgedOnTime, outcome)
		}

		require.Equal(t, []string{"alert-0", "alert-1", "alert-2", "alert-3", "alert-4"}, presenter.presented())
		require.Equal(t, int32(1), presenter.maxActive.Load())
		require.Zero(t, d.Pending())
		require.Nil(t, d.InFlight())
	})
}

// TestSubmit_TimeoutWithdrawsPresentation checks that a timed-out alert closes its surface.
func TestSubmit_TimeoutWithdrawsPresentation(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		d := newDispatcher(&scriptedPresenter{behave: waitUntilWithdrawn}, notifier)

		start := time.Now()

		record, err := d.Submit(context.Background(), &alert.Request{Message: "m"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeTimedOut, record.Outcome)
		require.Equal(t, 10*time.Minute, time.Since(start))
		require.Equal(t, []string{"Alert Not Acknowledged"}, notifier.all())
	})
}

// TestSubmit_ShutdownDismissesInFlight checks the forced dismissal on cancellation.
func TestSubmit_ShutdownDismissesInFlight(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		d := newDispatcher(&scriptedPresenter{behave: waitUntilWithdrawn}, notifier)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(time.Minute)
			cancel()
		}()

		record, err := d.Submit(ctx, &alert.Request{Message: "m"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeDismissedUnacknowledged, record.Outcome)
		require.Equal(t, []string{"Alert Withdrawn At Shutdown"}, notifier.all())

		// A stopped dispatcher refuses new work.
		_, err = d.Submit(ctx, &alert.Request{Message: "late"})
		require.ErrorIs(t, err, context.Canceled)
	})
}

// TestSubmit_CancelWhileWaiting checks that an abandoned submission leaves the line.
func TestSubmit_CancelWhileWaiting(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		presenter := &scriptedPresenter{behave: acknowledgeAfter(time.Minute)}
		d := newDispatcher(presenter, new(recordingNotifier))

		go func() {
			_, _ = d.Submit(context.Background(), &alert.Request{Message: "first"})
		}()

		synctest.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := d.Submit(ctx, &alert.Request{Message: "abandoned"})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Zero(t, d.Pending())

		record, err := d.Submit(context.Background(), &alert.Request{Message: "third"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeAcknowledgedOnTime, record.Outcome)
		require.Equal(t, []string{"first", "third"}, presenter.presented())
	})
}

// TestSubmit_PresenterFailures checks errors and panics release the slot.
func TestSubmit_PresenterFailures(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		calls := 0
		presenter := &scriptedPresenter{behave: func(context.Context, *tracker.Session) error {
			calls++
			if calls == 1 {
				return errTestPresent
			}

			panic("renderer crashed")
		}}
		d := newDispatcher(presenter, notifier)

		record, err := d.Submit(context.Background(), &alert.Request{Message: "a"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeDismissedUnacknowledged, record.Outcome)

		record, err = d.Submit(context.Background(), &alert.Request{Message: "b"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeDismissedUnacknowledged, record.Outcome)

		require.Equal(t, []string{"Alert Presentation Failed", "Alert Presentation Failed"}, notifier.all())
	})
}

// TestSubmit_ClosedSurface checks that closing without acknowledgment is reported.
func TestSubmit_ClosedSurface(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		d := newDispatcher(&scriptedPresenter{behave: func(context.Context, *tracker.Session) error {
			time.Sleep(2 * time.Minute)
			return nil
		}}, notifier)

		record, err := d.Submit(context.Background(), &alert.Request{Message: "m"})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeDismissedUnacknowledged, record.Outcome)
		require.Equal(t, []string{"Alert Window Closed Without Acknowledging"}, notifier.all())
	})
}

// TestSubmit_Sound checks that sound loops for the presentation and failures are reported.
func TestSubmit_Sound(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		player := new(fakePlayer)
		d := newDispatcher(&scriptedPresenter{behave: acknowledgeAfter(time.Second)}, notifier, WithPlayer(player))

		_, err := d.Submit(context.Background(), &alert.Request{Message: "loud", PlaySound: true})
		require.NoError(t, err)

		_, err = d.Submit(context.Background(), &alert.Request{Message: "quiet"})
		require.NoError(t, err)

		require.Equal(t, []string{config.Default().Sound.AlertClip}, player.played)
		require.Equal(t, []bool{true}, player.loops)
		require.Equal(t, int32(1), player.stopped.Load())

		player.err = errTestSound

		record, err := d.Submit(context.Background(), &alert.Request{Message: "broken", PlaySound: true})
		require.NoError(t, err)
		require.Equal(t, alert.OutcomeAcknowledgedOnTime, record.Outcome)
		require.Contains(t, notifier.all(), "Sound Error")
	})
}

// TestSubmit_NilRequest rejects nil requests.
func TestSubmit_NilRequest(t *testing.T) {
	t.Parallel()

	d := newDispatcher(&scriptedPresenter{behave: waitUntilWithdrawn}, new(recordingNotifier))

	_, err := d.Submit(context.Background(), nil)
	require.ErrorIs(t, err, errNilRequest)
}
