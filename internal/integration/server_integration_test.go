package integration

import (
	"context"
	"net"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/notify"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/service/common"
	"github.com/oshokin/attention-check/internal/service/server"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// closedWindow returns a one-hour window starting two hours from now, so
// no scheduled alert interferes with the test.
func closedWindow() (start, end string) {
	now := alert.TimeOfDayOf(time.Now())
	shift := func(minutes int) string {
		const day = 24 * 60

		return alert.TimeOfDay((int(now) + minutes) % day).String()
	}

	return shift(2 * 60), shift(3 * 60)
}

// startServer runs the real server with remote presentation and returns
// a channel receiving its result.
func startServer(t *testing.T, addr string) <-chan error {
	t.Helper()

	cfg := config.Default()
	cfg.ControlAddress = addr
	cfg.Presenter = config.PresenterRemote
	cfg.Schedule.Start, cfg.Schedule.End = closedWindow()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath, LogLevel: "warn"})
	}()

	return done
}

// TestServer_ManualAlertLifecycle queues an alert, answers it remotely and
// stops the server through the control API.
func TestServer_ManualAlertLifecycle(t *testing.T) {
	addr := reservePort(t)
	done := startServer(t, addr)

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	// The server may still be starting, so retry the first call.
	require.Eventually(t, func() bool {
		_, err = c.GetStatus(ctx)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	queued, err := c.EnqueueAlert(ctx, &control.EnqueueParams{
		Message:      "Integration check",
		MessageIndex: control.NoMessageIndex,
		Challenge:    &alert.Challenge{Question: "Type yes", Answer: "yes"},
		RequestedBy:  "tester@ci",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, queued, 0)

	var status *control.Status

	require.Eventually(t, func() bool {
		status, err = c.GetStatus(ctx)
		return err == nil && status.InFlight != nil
	}, 5*time.Second, 50*time.Millisecond)

	require.False(t, status.WindowActive)
	require.Equal(t, "Integration check", status.InFlight.Request.Message)
	require.Equal(t, "tester@ci", status.InFlight.Request.RequestedBy)
	require.Equal(t, "Type yes", status.Question)

	// A challenge cannot be skipped with a plain acknowledgment.
	_, err = c.RespondAlert(ctx, status.InFlight.ID, remote.ActionAcknowledge, "")
	require.Error(t, err)

	result, err := c.RespondAlert(ctx, status.InFlight.ID, remote.ActionAnswer, "YES")
	require.NoError(t, err)
	require.True(t, result.Resolved)
	require.Equal(t, alert.OutcomeAcknowledgedOnTime, result.Outcome)

	require.Eventually(t, func() bool {
		status, err = c.GetStatus(ctx)
		if err != nil || status.InFlight != nil {
			return false
		}

		return slices.ContainsFunc(status.Recent, func(n notify.Notification) bool {
			return n.Subject == "Alert Acknowledged"
		})
	}, 5*time.Second, 50*time.Millisecond)

	require.Equal(t, "Program Started", status.Recent[0].Subject)

	require.NoError(t, c.RequestShutdown(ctx))

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after the shutdown request")
	}
}
