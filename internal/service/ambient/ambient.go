package ambient

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/attention-check/internal/audio"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/loop"
	"github.com/oshokin/attention-check/internal/shutdown"
)

// Name identifies the loop in logs and failure reports.
const Name = "Ambient Sound"

// Player plays sound clips.
type Player interface {
	Play(path string, loop bool) (audio.Handle, error)
}

// Settings provides the current configuration.
type Settings interface {
	Current() *config.Config
}

// Loop plays the ambient clip while the window is active and the feature
// is enabled.
type Loop struct {
	settings Settings
	player   Player
	notifier loop.Notifier
	src      alert.Intn
	backoff  time.Duration
}

// Option configures a Loop.
type Option func(*Loop)

// WithRand sets the random source for pauses.
func WithRand(src alert.Intn) Option {
	return func(l *Loop) {
		l.src = src
	}
}

// WithBackoff sets the pause after a failed cycle.
func WithBackoff(backoff time.Duration) Option {
	return func(l *Loop) {
		l.backoff = backoff
	}
}

// New creates an ambient sound loop.
func New(settings Settings, player Player, notifier loop.Notifier, opts ...Option) *Loop {
	l := &Loop{
		settings: settings,
		player:   player,
		notifier: notifier,
		backoff:  loop.DefaultBackoff,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run plays sounds until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return loop.Run(ctx, Name, l.notifier, l.cycle, loop.WithBackoff(l.backoff))
}

func (l *Loop) cycle(ctx context.Context) error {
	cfg := l.settings.Current()
	if !l.active(cfg) {
		shutdown.Sleep(ctx, cfg.Schedule.PollInterval)
		return nil
	}

	minimum, maximum := cfg.AmbientRange()
	wait := loop.Between(l.src, minimum, maximum)

	logger.DebugKV(ctx, "Next ambient sound", "wait", wait)

	if !shutdown.Sleep(ctx, wait) {
		return nil
	}

	cfg = l.settings.Current()
	if !l.active(cfg) {
		return nil
	}

	l.play(ctx, cfg)

	return nil
}

func (l *Loop) active(cfg *config.Config) bool {
	return cfg.Ambient.Enabled && cfg.Window().IsActive(time.Now())
}

// play plays the ambient clip once for the configured duration.
func (l *Loop) play(ctx context.Context, cfg *config.Config) {
	clip := cfg.Sound.AmbientClip

	handle, err := l.player.Play(clip, false)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to play ambient sound", "clip", clip, "error", err)
		l.notifier.Notify(ctx, "Random Sound Error", fmt.Sprintf("Error playing random sound: %v", err))

		return
	}

	startedAt := time.Now()

	finished := shutdown.Sleep(ctx, cfg.Ambient.Duration)
	handle.Stop()

	if !finished {
		logger.InfoKV(ctx, "Ambient sound cut short by shutdown", "clip", clip)
		return
	}

	logger.InfoKV(ctx, "Ambient sound played", "clip", clip)
	l.notifier.Notify(ctx, "Random Sound Triggered", "Sound played at "+startedAt.Format(time.TimeOnly))
}
