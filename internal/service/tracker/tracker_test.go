package tracker

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-check/internal/domain/alert"
)

// sent is one recorded notification.
type sent struct {
	subject string
	message string
}

// recordingNotifier keeps every notification for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	items []sent
}

func (r *recordingNotifier) Notify(_ context.Context, subject, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, sent{subject: subject, message: message})
}

func (r *recordingNotifier) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]sent(nil), r.items...)
}

var testThresholds = Thresholds{
	Late:              5 * time.Minute,
	NeverAcknowledged: 10 * time.Minute,
}

func track(t *testing.T, tr *Tracker, req *alert.Request) *Session {
	t.Helper()

	return tr.Track(context.Background(), alert.NewRecord(req, time.Now()), testThresholds)
}

// TestSession_AcknowledgeThresholds checks the on-time and late boundary.
func TestSession_AcknowledgeThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		wait    time.Duration
		outcome alert.Outcome
		subject string
		message string
	}{
		{
			name:    "just before threshold",
			wait:    5*time.Minute - time.Second,
			outcome: alert.OutcomeAcknowledgedOnTime,
			subject: "Alert Acknowledged",
			message: "Alert acknowledged in 4.98 minutes.",
		},
		{
			name:    "exactly at threshold",
			wait:    5 * time.Minute,
			outcome: alert.OutcomeAcknowledgedOnTime,
			subject: "Alert Acknowledged",
			message: "Alert acknowledged in 5.00 minutes.",
		},
		{
			name:    "just after threshold",
			wait:    5*time.Minute + time.Second,
			outcome: alert.OutcomeAcknowledgedLate,
			subject: "Alert Acknowledged Late",
			message: "The alert was acknowledged after 5.02 minutes.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			synctest.Test(t, func(t *testing.T) {
				notifier := new(recordingNotifier)
				s := track(t, New(notifier), &alert.Request{Message: "m"})

				time.Sleep(tc.wait)
				require.NoError(t, s.Acknowledge())
				<-s.Done()

				snapshot := s.Snapshot()
				require.Equal(t, tc.outcome, snapshot.Outcome)
				require.NotNil(t, snapshot.AcknowledgedAt)
				require.Equal(t, []sent{{subject: tc.subject, message: tc.message}}, notifier.all())

				// The timeout must not fire after an acknowledgment.
				time.Sleep(time.Hour)
				require.Len(t, notifier.all(), 1)
			})
		})
	}
}

// TestSession_TimesOutOnce checks the deferred timeout and that late actions are no-ops.
func TestSession_TimesOutOnce(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		tr := New(notifier)
		s := track(t, tr, &alert.Request{Message: "m"})

		time.Sleep(10*time.Minute - time.Second)
		synctest.Wait()
		require.Empty(t, notifier.all())

		time.Sleep(time.Second)
		<-s.Done()

		require.Equal(t, alert.OutcomeTimedOut, s.Snapshot().Outcome)
		require.Nil(t, s.Snapshot().AcknowledgedAt)
		require.ErrorIs(t, s.Acknowledge(), ErrAlreadyResolved)
		require.ErrorIs(t, s.Dismiss(ReasonClosed), ErrAlreadyResolved)

		_, _, err := s.Answer("1")
		require.ErrorIs(t, err, ErrAlreadyResolved)

		require.Equal(t, []sent{{
			subject: "Alert Not Acknowledged",
			message: "The alert was not acknowledged after 10.00 minutes.",
		}}, notifier.all())

		_, err = tr.Lookup(s.ID())
		require.ErrorIs(t, err, ErrNotFound)
	})
}

// TestSession_Challenge checks that wrong answers re-issue a challenge without resolving.
func TestSession_Challenge(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		src := rand.New(rand.NewPCG(7, 8)) //nolint:gosec // Deterministic source for tests.
		tr := New(notifier, WithRand(src))

		s := track(t, tr, &alert.Request{
			Message:   "m",
			Challenge: &alert.Challenge{Question: "Solve this: 2 + 2", Answer: "4"},
		})

		require.ErrorIs(t, s.Acknowledge(), ErrChallengeRequired)

		correct, next, err := s.Answer("5")
		require.NoError(t, err)
		require.False(t, correct)
		require.NotNil(t, next)
		require.Equal(t, next, s.Challenge())
		require.Equal(t, alert.OutcomePending, s.Snapshot().Outcome)
		require.Empty(t, notifier.all())

		time.Sleep(time.Minute)

		correct, next, err = s.Answer(next.Answer)
		require.NoError(t, err)
		require.True(t, correct)
		require.Nil(t, next)
		require.Equal(t, alert.OutcomeAcknowledgedOnTime, s.Snapshot().Outcome)
		require.Equal(t, []sent{{subject: "Alert Acknowledged", message: "Alert acknowledged in 1.00 minutes."}}, notifier.all())
	})
}

// TestSession_DismissReasons checks the subject used for every dismissal reason.
func TestSession_DismissReasons(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		reasons := map[DismissReason]sent{
			ReasonClosed: {
				subject: "Alert Window Closed Without Acknowledging",
				message: "The alert window was closed without acknowledging after 1.50 minutes.",
			},
			ReasonShutdown: {
				subject: "Alert Withdrawn At Shutdown",
				message: "The alert was withdrawn at shutdown without acknowledgment after 1.50 minutes.",
			},
			ReasonPresentationFailed: {
				subject: "Alert Presentation Failed",
				message: "The alert could not be shown and was dismissed after 1.50 minutes.",
			},
		}

		for reason, want := range reasons {
			notifier := new(recordingNotifier)
			s := track(t, New(notifier), &alert.Request{Message: "m"})

			time.Sleep(90 * time.Second)
			require.NoError(t, s.Dismiss(reason))
			require.Equal(t, alert.OutcomeDismissedUnacknowledged, s.Snapshot().Outcome)
			require.Equal(t, []sent{want}, notifier.all())
		}
	})
}

// TestSession_ConcurrentResolution checks that racing resolutions yield one outcome and one notification.
func TestSession_ConcurrentResolution(t *testing.T) {
	t.Parallel()

	for range 50 {
		notifier := new(recordingNotifier)
		tr := New(notifier)
		s := tr.Track(context.Background(), alert.NewRecord(&alert.Request{Message: "m"}, time.Now()), Thresholds{
			Late:              time.Minute,
			NeverAcknowledged: time.Millisecond,
		})

		var (
			wg        sync.WaitGroup
			successes sync.Map
		)

		for i := range 16 {
			wg.Go(func() {
				var err error
				if i%2 == 0 {
					err = s.Acknowledge()
				} else {
					err = s.Dismiss(ReasonClosed)
				}

				if err == nil {
					successes.Store(i, true)
				}
			})
		}

		wg.Wait()
		<-s.Done()

		// Give a possibly racing timer callback time to run.
		time.Sleep(5 * time.Millisecond)

		require.Len(t, notifier.all(), 1)

		count := 0

		successes.Range(func(any, any) bool {
			count++
			return true
		})

		require.LessOrEqual(t, count, 1)
		require.True(t, s.Snapshot().Outcome.Terminal())
	}
}

// TestTracker_Lookup verifies sessions are addressable until resolved.
func TestTracker_Lookup(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		tr := New(nil)
		s := track(t, tr, &alert.Request{Message: "m"})

		found, err := tr.Lookup(s.ID())
		require.NoError(t, err)
		require.Same(t, s, found)

		require.NoError(t, s.Acknowledge())

		_, err = tr.Lookup(s.ID())
		require.ErrorIs(t, err, ErrNotFound)
	})
}
