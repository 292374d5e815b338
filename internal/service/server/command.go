package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/audio"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/notify"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/presenter/terminal"
	"github.com/oshokin/attention-check/internal/service/ambient"
	"github.com/oshokin/attention-check/internal/service/common"
	"github.com/oshokin/attention-check/internal/service/dispatch"
	"github.com/oshokin/attention-check/internal/service/manual"
	"github.com/oshokin/attention-check/internal/service/scheduler"
	"github.com/oshokin/attention-check/internal/service/tracker"
	"github.com/oshokin/attention-check/internal/service/updater"
	"github.com/oshokin/attention-check/internal/shutdown"
	"github.com/oshokin/attention-check/internal/version"
)

// Options controls the attention-server process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the control address from the settings.
	ListenAddress string
	// LogLevel is the minimum console and file log level.
	LogLevel string
}

// notifierCloseTimeout bounds the final flush of pending notifications.
const notifierCloseTimeout = 10 * time.Second

var (
	// ErrNoControlAddress indicates missing control API configuration.
	ErrNoControlAddress = errors.New("no control address configured")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Run starts every loop and the control API and blocks until ctx is
// canceled, a shutdown is requested through the API, or a component fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "attention-server")

	level, ok := logger.ParseLogLevel(opts.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, opts.LogLevel)
	}

	watcher, err := config.NewWatcher(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cfg := watcher.Current()

	closeLogs, err := setupLogging(cfg, level)
	if err != nil {
		return err
	}

	defer func() {
		_ = closeLogs()
	}()

	if err = common.EnsureSingleInstance(""); err != nil {
		return err
	}

	listenAddress, err := resolveListenAddress(cfg.ControlAddress, opts.ListenAddress)
	if err != nil {
		return err
	}

	journal := notify.NewJournal(cfg.Notify.JournalSize)
	notifier := newNotifier(ctx, cfg, journal)

	notifier.Notify(ctx, "Program Started",
		fmt.Sprintf("Attention check %s started at %s.", version.Short(), time.Now().Format(time.DateTime)))

	defer closeNotifier(ctx, notifier)

	updater.CheckIntegrity(ctx, cfg.Integrity.ExpectedChecksum, notifier)

	token := shutdown.New(ctx)
	device := audio.NewDevice()
	tr := tracker.New(notifier)
	dispatcher := dispatch.New(watcher, tr, newPresenter(ctx, cfg), notifier, dispatch.WithPlayer(device))
	queue := manual.NewQueue()

	svc := &service{
		settings:   watcher,
		queue:      queue,
		dispatcher: dispatcher,
		sessions:   tr,
		journal:    journal,
		stop:       token.Request,
		now:        time.Now,
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	control.RegisterControlServer(grpcServer, control.NewServer(svc))

	logger.InfoKV(ctx, "Attention server started",
		"version", version.Short(),
		"listen_address", listenAddress,
		"settings", watcher.Path(),
		"window", cfg.Window().String(),
		"presenter", cfg.Presenter)

	g, gctx := errgroup.WithContext(token.Context())

	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return scheduler.New(watcher, dispatcher, notifier).Run(gctx) })
	g.Go(func() error { return manual.NewDrainer(queue, dispatcher, notifier).Run(gctx) })
	g.Go(func() error { return ambient.New(watcher, device, notifier).Run(gctx) })
	g.Go(func() error { return updater.New(watcher, notifier).Run(gctx) })
	g.Go(func() error { return serve(gctx, grpcServer, lis) })

	err = g.Wait()

	notifier.Notify(ctx, "Program Stopped",
		fmt.Sprintf("Attention check stopped at %s.", time.Now().Format(time.DateTime)))

	if err != nil {
		return fmt.Errorf("attention server: %w", err)
	}

	logger.Info(ctx, "Attention server stopped")

	return nil
}

// serve runs the control API until ctx is done.
func serve(ctx context.Context, grpcServer *grpc.Server, lis net.Listener) error {
	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down control API")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Control API stopped")

	return nil
}

// setupLogging keeps the console free for the terminal presenter.
func setupLogging(cfg *config.Config, level zapcore.Level) (func() error, error) {
	closeLogs, err := logger.Setup(logger.Options{
		Level:   level,
		Console: cfg.Presenter != config.PresenterTerminal || cfg.LogFile == "",
		File: logger.FileOptions{
			Path:  cfg.LogFile,
			Level: level,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	return closeLogs, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, journal *notify.Journal) *notify.Async {
	sinks := []notify.Sink{journal, notify.LogSink{}}
	if cfg.Notify.SMTP.Enabled() {
		sinks = append(sinks, notify.NewMailer(cfg.Notify.SMTP))
	}

	return notify.NewAsync(ctx, sinks,
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithSendTimeout(cfg.Notify.SendTimeout))
}

func closeNotifier(ctx context.Context, notifier *notify.Async) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifierCloseTimeout)
	defer cancel()

	if err := notifier.Close(closeCtx); err != nil {
		logger.WarnKV(ctx, "Pending notifications were not delivered", "error", err)
	}
}

// newPresenter picks the presenter named in the settings. The choice is
// made once at startup.
func newPresenter(ctx context.Context, cfg *config.Config) dispatch.Presenter {
	if cfg.Presenter == config.PresenterRemote {
		logger.Info(ctx, "Alerts are answered through the control API")
		return remote.New()
	}

	return terminal.New()
}

// resolveListenAddress returns override when set and the configured
// control address otherwise.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoControlAddress
	}

	if _, _, err := net.SplitHostPort(configAddr); err != nil {
		return "", fmt.Errorf("invalid control address format %q: %w", configAddr, err)
	}

	return configAddr, nil
}
