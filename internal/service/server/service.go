package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/notify"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/service/manual"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

// settings provides the current configuration snapshot.
type settings interface {
	Current() *config.Config
}

// inFlight reports what the dispatcher is doing.
type inFlight interface {
	InFlight() *alert.Record
	Pending() int
}

// service implements control.Service on top of the running loops.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	settings   settings
	queue      *manual.Queue
	dispatcher inFlight
	sessions   remote.Sessions
	journal    *notify.Journal
	stop       func()
	src        alert.Intn
	now        func() time.Time
}

// EnqueueAlert validates params and puts a manual request on the queue.
func (s *service) EnqueueAlert(ctx context.Context, params *control.EnqueueParams) (*control.EnqueueResult, error) {
	req, err := buildRequest(s.settings.Current(), params, s.src)
	if err != nil {
		return nil, err
	}

	if err = s.queue.Enqueue(req); err != nil {
		return nil, fmt.Errorf("%w: %w", control.ErrInvalidRequest, err)
	}

	queued := s.queue.Len()

	logger.InfoKV(ctx, "Manual alert queued",
		"requested_by", req.RequestedBy,
		"challenge", req.Challenge != nil,
		"queued", queued)

	return &control.EnqueueResult{Queued: queued}, nil
}

// Status reports the in-flight alert, the waiting line and recent notifications.
func (s *service) Status(_ context.Context) *control.Status {
	cfg := s.settings.Current()
	window := cfg.Window()

	result := &control.Status{
		InFlight:     s.dispatcher.InFlight(),
		Waiting:      s.dispatcher.Pending(),
		Queued:       s.queue.Len(),
		Window:       window.String(),
		WindowActive: window.IsActive(s.now()),
	}

	if s.journal != nil {
		result.Recent = s.journal.Recent()
	}

	if result.InFlight == nil {
		return result
	}

	if session, err := s.sessions.Lookup(result.InFlight.ID); err == nil {
		if challenge := session.Challenge(); challenge != nil {
			result.Question = challenge.Question
		}
	}

	return result
}

// RespondAlert applies a remote response to an unresolved alert.
func (s *service) RespondAlert(
	ctx context.Context,
	id uuid.UUID,
	action remote.Action,
	answer string,
) (*remote.Result, error) {
	result, err := remote.Respond(s.sessions, id, action, answer)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Remote response applied",
		"alert_id", id.String(),
		"action", action,
		"resolved", result.Resolved)

	return result, nil
}

// RequestShutdown stops every loop of the process.
func (s *service) RequestShutdown(ctx context.Context) {
	logger.Info(ctx, "Shutdown requested through the control API")
	s.stop()
}

// buildRequest turns control parameters into an alert request.
func buildRequest(cfg *config.Config, params *control.EnqueueParams, src alert.Intn) (*alert.Request, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: parameters are required", control.ErrInvalidRequest)
	}

	message := strings.TrimSpace(params.Message)

	if params.MessageIndex != control.NoMessageIndex {
		predefined, ok := cfg.PredefinedMessage(params.MessageIndex)
		if !ok {
			return nil, fmt.Errorf("%w: message index %d is out of range, %d messages are configured",
				control.ErrInvalidRequest, params.MessageIndex, len(cfg.Alert.PredefinedMessages))
		}

		message = predefined
	}

	if message == "" {
		message = cfg.Alert.Message
	}

	req := &alert.Request{
		Message:     message,
		PlaySound:   params.PlaySound,
		Source:      alert.SourceManual,
		RequestedBy: params.RequestedBy,
	}

	switch {
	case params.Challenge != nil:
		question := strings.TrimSpace(params.Challenge.Question)
		answer := strings.TrimSpace(params.Challenge.Answer)

		if question == "" || answer == "" {
			return nil, fmt.Errorf("%w: a challenge needs both a question and an answer", control.ErrInvalidRequest)
		}

		req.Challenge = &alert.Challenge{Question: question, Answer: answer}
	case params.Math || cfg.Alert.ChallengeEnabled:
		req.Challenge = alert.NewArithmeticChallenge(src)
	}

	return req, nil
}

var (
	_ control.Service = (*service)(nil)
	_ remote.Sessions = (*tracker.Tracker)(nil)
)
