package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/service/common"
)

// Options configures how the trigger reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the control address from the settings.
	ServerAddress string
	// Output receives human-readable results. Defaults to os.Stdout.
	Output io.Writer
}

// API is the part of the control client the trigger uses.
type API interface {
	EnqueueAlert(ctx context.Context, params *control.EnqueueParams) (int, error)
	GetStatus(ctx context.Context) (*control.Status, error)
	RespondAlert(ctx context.Context, id uuid.UUID, action remote.Action, answer string) (*control.RespondResult, error)
	RequestShutdown(ctx context.Context) error
}

// defaultRetryInterval defines the delay between attempts to reach a server that is not up yet.
const defaultRetryInterval = 1 * time.Second

var errNoAlertShown = errors.New("no alert is being shown")

// Trigger runs operator commands against the control API.
type Trigger struct {
	api           API
	actor         string
	out           io.Writer
	retryInterval time.Duration
}

// NewTrigger returns a trigger acting as actor.
func NewTrigger(api API, actor string, out io.Writer) *Trigger {
	if out == nil {
		out = os.Stdout
	}

	return &Trigger{
		api:           api,
		actor:         actor,
		out:           out,
		retryInterval: defaultRetryInterval,
	}
}

// Run loads the settings, connects to the server and calls fn.
func Run(ctx context.Context, opts *Options, fn func(ctx context.Context, t *Trigger) error) error {
	ctx = logger.WithName(ctx, "attention-trigger")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	address := cfg.ControlAddress
	if opts.ServerAddress != "" {
		address = opts.ServerAddress
	}

	// Identify current user and hostname for the alert's audit trail.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to control API", "server_address", address, "actor", actor)

	return fn(ctx, NewTrigger(client, actor, opts.Output))
}

// Enqueue queues a manual alert. While the server is unreachable the request
// is retried until ctx is done.
func (t *Trigger) Enqueue(ctx context.Context, params *control.EnqueueParams) error {
	request := *params
	request.RequestedBy = t.actor

	if request.Challenge != nil && (request.Challenge.Question == "" || request.Challenge.Answer == "") {
		return fmt.Errorf("%w: a challenge needs both a question and an answer", control.ErrInvalidRequest)
	}

	// attempt tries once to queue the alert, returns (completed, error).
	attempt := func() (bool, error) {
		queued, err := t.api.EnqueueAlert(ctx, &request)
		if err != nil {
			if status.Code(err) == codes.Unavailable {
				logger.WarnKV(ctx, "Server unavailable, retrying", "error", err)
				return false, nil
			}

			return false, err
		}

		_, _ = fmt.Fprintf(t.out, "Alert queued by %s, %d waiting in the manual queue.\n", t.actor, queued)

		return true, nil
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(t.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil || done {
				return err
			}
		}
	}
}

// Status prints the server status.
func (t *Trigger) Status(ctx context.Context) error {
	s, err := t.api.GetStatus(ctx)
	if err != nil {
		return err
	}

	_, _ = io.WriteString(t.out, FormatStatus(s))

	return nil
}

// Respond applies action to the alert id. An empty id targets the alert
// currently shown.
func (t *Trigger) Respond(ctx context.Context, id string, action remote.Action, answer string) error {
	alertID, err := t.resolveID(ctx, id)
	if err != nil {
		return err
	}

	result, err := t.api.RespondAlert(ctx, alertID, action, answer)
	if err != nil {
		return err
	}

	switch {
	case result.Resolved:
		_, _ = fmt.Fprintf(t.out, "Alert %s resolved: %s.\n", alertID, result.Outcome)
	case result.Question != "":
		_, _ = fmt.Fprintf(t.out, "Wrong answer. New question: %s\n", result.Question)
	default:
		_, _ = fmt.Fprintf(t.out, "Alert %s is still %s.\n", alertID, result.Outcome)
	}

	return nil
}

// Shutdown asks the server to stop.
func (t *Trigger) Shutdown(ctx context.Context) error {
	if err := t.api.RequestShutdown(ctx); err != nil {
		return err
	}

	_, _ = io.WriteString(t.out, "Shutdown requested.\n")

	return nil
}

func (t *Trigger) resolveID(ctx context.Context, id string) (uuid.UUID, error) {
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("alert id %q: %w", id, err)
		}

		return parsed, nil
	}

	s, err := t.api.GetStatus(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	if s.InFlight == nil {
		return uuid.Nil, errNoAlertShown
	}

	return s.InFlight.ID, nil
}

// FormatStatus renders s for the terminal.
func FormatStatus(s *control.Status) string {
	var b strings.Builder

	state := "closed"
	if s.WindowActive {
		state = "open"
	}

	fmt.Fprintf(&b, "Window: %s (%s)\n", s.Window, state)

	if s.InFlight == nil {
		b.WriteString("Alert: none\n")
	} else {
		writeAlert(&b, s.InFlight, s.Question)
	}

	fmt.Fprintf(&b, "Waiting: %d, queued: %d\n", s.Waiting, s.Queued)

	if len(s.Recent) == 0 {
		return b.String()
	}

	b.WriteString("Recent notifications:\n")

	for _, n := range s.Recent {
		fmt.Fprintf(&b, "  %s  %s: %s\n", n.At.Local().Format(time.DateTime), n.Subject, n.Message)
	}

	return b.String()
}

func writeAlert(b *strings.Builder, record *alert.Record, question string) {
	fmt.Fprintf(b, "Alert: %s since %s\n", record.ID, record.FiredAt.Local().Format(time.TimeOnly))

	if record.Request == nil {
		return
	}

	fmt.Fprintf(b, "  Message: %s\n", record.Request.Message)

	if record.Request.RequestedBy != "" {
		fmt.Fprintf(b, "  Requested by: %s\n", record.Request.RequestedBy)
	}

	if question != "" {
		fmt.Fprintf(b, "  Question: %s\n", question)
	}
}
