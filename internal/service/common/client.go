//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oshokin/attention-check/internal/api/grpc/control"
	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/presenter/remote"
)

// Client wraps the control service client with call timeouts.
type Client struct {
	// conn is the underlying gRPC connection to the server.
	conn *grpc.ClientConn
	// api is the typed control service client.
	api *control.ControlClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errParamsRequired is returned when enqueueing without parameters.
	errParamsRequired = errors.New("alert parameters must be provided")
)

// Dial creates a client for the control service at address.
// The control API is meant for localhost, so transport is not encrypted.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial attention server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         control.NewControlClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// EnqueueAlert queues a manual alert and returns the queue length.
func (c *Client) EnqueueAlert(ctx context.Context, params *control.EnqueueParams) (int, error) {
	if params == nil {
		return 0, errParamsRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.EnqueueAlert(callCtx, params)
	if err != nil {
		return 0, fmt.Errorf("enqueue alert: %w", err)
	}

	return result.Queued, nil
}

// GetStatus retrieves a server snapshot.
func (c *Client) GetStatus(ctx context.Context) (*control.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	status, err := c.api.GetStatus(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return status, nil
}

// RespondAlert acknowledges, answers or dismisses the alert id.
func (c *Client) RespondAlert(
	ctx context.Context,
	id uuid.UUID,
	action remote.Action,
	answer string,
) (*control.RespondResult, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.RespondAlert(callCtx, id, action, answer)
	if err != nil {
		return nil, fmt.Errorf("respond to alert: %w", err)
	}

	return result, nil
}

// RequestShutdown asks the server to stop.
func (c *Client) RequestShutdown(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.api.RequestShutdown(callCtx); err != nil {
		return fmt.Errorf("request shutdown: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
