package control

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/presenter/remote"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

// ErrInvalidRequest marks service errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

// Service abstracts the operations the transport layer depends on.
type Service interface {
	EnqueueAlert(ctx context.Context, params *EnqueueParams) (*EnqueueResult, error)
	Status(ctx context.Context) *Status
	RespondAlert(ctx context.Context, id uuid.UUID, action remote.Action, answer string) (*remote.Result, error)
	RequestShutdown(ctx context.Context)
}

// Server implements ControlServer on top of a Service.
type Server struct {
	// service provides the business logic.
	service Service
}

// NewServer wires service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// EnqueueAlert queues a manual alert.
func (s *Server) EnqueueAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := s.service.EnqueueAlert(ctx, decodeEnqueue(in))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return newStruct(map[string]any{keyQueued: result.Queued})
}

// GetStatus returns the in-flight alert, queue sizes and recent notifications.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return newStruct(encodeStatus(s.service.Status(ctx)))
}

// RespondAlert acknowledges, answers or dismisses an alert.
func (s *Server) RespondAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	id, err := uuid.Parse(stringField(in, keyID))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "alert id must be a UUID")
	}

	result, err := s.service.RespondAlert(ctx, id, remote.Action(stringField(in, keyAction)), stringField(in, keyAnswer))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	response := &RespondResult{
		Resolved: result.Resolved,
		Outcome:  result.Record.Outcome,
	}

	if result.Challenge != nil {
		response.Question = result.Challenge.Question
	}

	return newStruct(encodeRespondResult(response))
}

// RequestShutdown asks the server to stop.
func (s *Server) RequestShutdown(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.service.RequestShutdown(ctx)

	return new(emptypb.Empty), nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, remote.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, tracker.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, tracker.ErrAlreadyResolved), errors.Is(err, tracker.ErrChallengeRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logger.ErrorKV(ctx, "Control request failed", "error", err)

		return status.Error(codes.Internal, "internal error")
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}

	return result, nil
}
