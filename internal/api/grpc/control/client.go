package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/attention-check/internal/presenter/remote"
)

// ControlClient is a typed client of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient returns a client using cc.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// EnqueueAlert queues a manual alert.
func (c *ControlClient) EnqueueAlert(
	ctx context.Context,
	params *EnqueueParams,
	opts ...grpc.CallOption,
) (*EnqueueResult, error) {
	in, err := structpb.NewStruct(encodeEnqueue(params))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err = c.cc.Invoke(ctx, methodEnqueueAlert, in, out, opts...); err != nil {
		return nil, err
	}

	return &EnqueueResult{Queued: intField(out, keyQueued)}, nil
}

// GetStatus fetches a server snapshot.
func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*Status, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return decodeStatus(out)
}

// RespondAlert applies action to the alert id.
func (c *ControlClient) RespondAlert(
	ctx context.Context,
	id uuid.UUID,
	action remote.Action,
	answer string,
	opts ...grpc.CallOption,
) (*RespondResult, error) {
	in, err := structpb.NewStruct(map[string]any{
		keyID:     id.String(),
		keyAction: string(action),
		keyAnswer: answer,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err = c.cc.Invoke(ctx, methodRespondAlert, in, out, opts...); err != nil {
		return nil, err
	}

	return decodeRespondResult(out), nil
}

// RequestShutdown asks the server to stop.
func (c *ControlClient) RequestShutdown(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, methodRequestShutdown, new(emptypb.Empty), new(emptypb.Empty), opts...)
}
