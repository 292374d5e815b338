package notify

import (
	"context"
	"errors"
	"net/smtp"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-check/internal/config"
)

var errTestSink = errors.New("sink is down")

// recordingSink stores everything it receives.
type recordingSink struct {
	mu       sync.Mutex
	received []Notification
	// block, when set, delays every delivery until it is closed.
	block chan struct{}
	err   error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(ctx context.Context, n Notification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = append(s.received, n)

	return s.err
}

func (s *recordingSink) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, 0, len(s.received))
	for _, n := range s.received {
		result = append(result, n.Subject)
	}

	return result
}

// panickingSink always panics.
type panickingSink struct{}

func (panickingSink) Name() string { return "panicking" }

func (panickingSink) Send(context.Context, Notification) error { panic("boom") }

// TestAsync_DeliversInOrderToAllSinks verifies fan-out and order preservation.
func TestAsync_DeliversInOrderToAllSinks(t *testing.T) {
	t.Parallel()

	first := new(recordingSink)
	second := &recordingSink{err: errTestSink}

	a := NewAsync(context.Background(), []Sink{first, panickingSink{}, second})

	a.Notify(context.Background(), "Alert Acknowledged", "one")
	a.Notify(context.Background(), "Alert Acknowledged Late", "two")

	require.NoError(t, a.Close(context.Background()))
	require.Equal(t, []string{"Alert Acknowledged", "Alert Acknowledged Late"}, first.subjects())
	require.Equal(t, first.subjects(), second.subjects())

	// Closing twice and notifying afterwards is harmless.
	require.Error(t, a.Close(context.Background()))
	a.Notify(context.Background(), "late", "ignored")
}

// TestAsync_DropsWhenFull ensures Notify never blocks on a saturated queue.
func TestAsync_DropsWhenFull(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		sink := &recordingSink{block: make(chan struct{})}
		a := NewAsync(context.Background(), []Sink{sink}, WithQueueSize(1), WithSendTimeout(time.Hour))

		// The worker takes the first item and blocks, the second fills the queue.
		a.Notify(context.Background(), "1", "")
		synctest.Wait()
		a.Notify(context.Background(), "2", "")
		a.Notify(context.Background(), "3", "")

		close(sink.block)
		require.NoError(t, a.Close(context.Background()))
		require.Equal(t, []string{"1", "2"}, sink.subjects())
	})
}

// TestAsync_SendTimeout verifies slow sinks are cut off.
func TestAsync_SendTimeout(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		slow := &recordingSink{block: make(chan struct{})}
		a := NewAsync(context.Background(), []Sink{slow}, WithSendTimeout(3*time.Second))

		start := time.Now()

		a.Notify(context.Background(), "Alert Not Acknowledged", "")
		require.NoError(t, a.Close(context.Background()))
		require.Equal(t, 3*time.Second, time.Since(start))
		require.Empty(t, slow.subjects())
	})
}

// TestAsync_CloseHonorsContext ensures Close gives up when its context ends first.
func TestAsync_CloseHonorsContext(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		slow := &recordingSink{block: make(chan struct{})}
		a := NewAsync(context.Background(), []Sink{slow}, WithSendTimeout(time.Hour))

		a.Notify(context.Background(), "Program Stopped", "")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
		close(slow.block)
	})
}

// TestJournal_KeepsMostRecent checks ring eviction order.
func TestJournal_KeepsMostRecent(t *testing.T) {
	t.Parallel()

	j := NewJournal(3)
	require.Empty(t, j.Recent())

	for _, subject := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, j.Send(context.Background(), Notification{Subject: subject}))
	}

	recent := j.Recent()
	require.Len(t, recent, 3)
	require.Equal(t, "c", recent[0].Subject)
	require.Equal(t, "e", recent[2].Subject)
}

// TestMailer_Send verifies the composed message and recipients.
func TestMailer_Send(t *testing.T) {
	t.Setenv("TEST_SMTP_PASSWORD", "secret")

	m := NewMailer(config.SMTP{
		Host:        "mail.local",
		Port:        2525,
		Username:    "bot@local",
		To:          []string{"ops@local", "lead@local"},
		PasswordEnv: "TEST_SMTP_PASSWORD",
	})

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)

	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), Notification{
		Subject: "Alert Not\nAcknowledged",
		Message: "The alert was not acknowledged after 10.00 minutes.",
		At:      time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "mail.local:2525", gotAddr)
	require.Equal(t, "bot@local", gotFrom)
	require.Equal(t, []string{"ops@local", "lead@local"}, gotTo)
	require.Contains(t, gotMsg, "Subject: Alert Not Acknowledged\r\n")
	require.Contains(t, gotMsg, "To: ops@local, lead@local\r\n")
	require.Contains(t, gotMsg, "\r\n\r\nThe alert was not acknowledged after 10.00 minutes.")

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errTestSink }
	require.ErrorIs(t, m.Send(context.Background(), Notification{}), errTestSink)
}
