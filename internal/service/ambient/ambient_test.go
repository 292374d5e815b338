package ambient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-check/internal/audio"
	"github.com/oshokin/attention-check/internal/config"
)

var errTestDevice = errors.New("device busy")

type lowestRand struct{}

func (lowestRand) IntN(int) int {
	return 0
}

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

type fakeHandle struct {
	stopped *atomic.Int32
}

func (h fakeHandle) Stop() {
	h.stopped.Add(1)
}

// fakePlayer records playback starts.
type fakePlayer struct {
	mu      sync.Mutex
	starts  []time.Time
	stopped atomic.Int32
	err     error
}

//nolint:ireturn // Matches the Player interface.
func (p *fakePlayer) Play(_ string, loop bool) (audio.Handle, error) {
	if loop {
		panic("ambient sounds never loop")
	}

	p.mu.Lock()
	p.starts = append(p.starts, time.Now())
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	return fakeHandle{stopped: &p.stopped}, nil
}

func (p *fakePlayer) played() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]time.Time(nil), p.starts...)
}

func ambientConfig(enabled bool) *config.Config {
	cfg := config.Default()
	cfg.Schedule.Start = "00:00"
	cfg.Schedule.End = "00:00"
	cfg.Ambient.Enabled = enabled
	cfg.Ambient.MinSeconds = 60
	cfg.Ambient.MaxSeconds = 120

	return cfg
}

// runFor runs l for d and returns once it stopped.
func runFor(t *testing.T, l *Loop, d time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	require.NoError(t, l.Run(ctx))
}

// TestLoop_PlaysWhenEnabled checks sounds play at the configured pace.
func TestLoop_PlaysWhenEnabled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		player := new(fakePlayer)
		start := time.Now()

		runFor(t, New(config.NewHolder(ambientConfig(true)), player, notifier, WithRand(lowestRand{})), 2*time.Minute+10*time.Second)

		// One minute pause, five seconds of sound, then again.
		require.Equal(t, []time.Time{start.Add(time.Minute), start.Add(2*time.Minute + 5*time.Second)}, player.played())
		require.Equal(t, int32(2), player.stopped.Load())
		require.Equal(t, []string{"Random Sound Triggered", "Random Sound Triggered"}, notifier.all())
	})
}

// TestLoop_IdleWhenDisabled checks nothing plays while the feature is off.
func TestLoop_IdleWhenDisabled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := new(fakePlayer)

		runFor(t, New(config.NewHolder(ambientConfig(false)), player, new(recordingNotifier)), time.Hour)
		require.Empty(t, player.played())
	})
}

// TestLoop_IdleOutsideWindow checks nothing plays outside the window.
func TestLoop_IdleOutsideWindow(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cfg := ambientConfig(true)

		// An hour-long window that opens twelve hours from now.
		now := time.Now().Add(12 * time.Hour)
		cfg.Schedule.Start = now.Format("15:04")
		cfg.Schedule.End = now.Add(time.Hour).Format("15:04")

		player := new(fakePlayer)

		runFor(t, New(config.NewHolder(cfg), player, new(recordingNotifier)), 6*time.Hour)
		require.Empty(t, player.played())
	})
}

// TestLoop_DisabledWhileWaiting checks the feature flag is re-read before playing.
func TestLoop_DisabledWhileWaiting(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		holder := config.NewHolder(ambientConfig(true))
		player := new(fakePlayer)

		go func() {
			time.Sleep(30 * time.Second)
			holder.Set(ambientConfig(false))
		}()

		runFor(t, New(holder, player, new(recordingNotifier), WithRand(lowestRand{})), 5*time.Minute)
		require.Empty(t, player.played())
	})
}

// TestLoop_ReportsPlaybackFailure checks failures are reported and the loop continues.
func TestLoop_ReportsPlaybackFailure(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		player := &fakePlayer{err: errTestDevice}

		runFor(t, New(config.NewHolder(ambientConfig(true)), player, notifier, WithRand(lowestRand{})), 2*time.Minute+time.Second)

		require.Len(t, player.played(), 2)
		require.Equal(t, []string{"Random Sound Error", "Random Sound Error"}, notifier.all())
	})
}

// TestLoop_ShutdownDuringPlayback checks a sound cut short is stopped but not reported as played.
func TestLoop_ShutdownDuringPlayback(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		notifier := new(recordingNotifier)
		player := new(fakePlayer)

		// The first sound starts after one minute and is interrupted two seconds in.
		runFor(t, New(config.NewHolder(ambientConfig(true)), player, notifier, WithRand(lowestRand{})), time.Minute+2*time.Second)

		require.Len(t, player.played(), 1)
		require.Equal(t, int32(1), player.stopped.Load())
		require.Empty(t, notifier.all())
	})
}
