package shutdown

import (
	"context"
	"time"
)

// Token is a one-way stop signal shared by all loops of the process.
// Once requested it stays requested.
type Token struct {
	ctx    context.Context //nolint:containedctx // The token owns the root context of the process.
	cancel context.CancelFunc
}

// New returns a token derived from parent. Cancelling parent also
// requests the stop.
func New(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)

	return &Token{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Request asks every loop to stop. Safe to call any number of times
// from any goroutine.
func (t *Token) Request() {
	t.cancel()
}

// Requested reports whether a stop was requested.
func (t *Token) Requested() bool {
	return t.ctx.Err() != nil
}

// Done is closed once a stop is requested.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns a context cancelled when the stop is requested.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Sleep blocks for d or until ctx is done. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
