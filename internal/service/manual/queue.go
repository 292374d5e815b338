package manual

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/attention-check/internal/domain/alert"
)

// errNilRequest is returned when enqueueing a nil request.
var errNilRequest = errors.New("alert request is required")

// Queue is an unbounded FIFO of alert requests, safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []*alert.Request
	// signal has a pending value while items is not empty.
	signal chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a copy of req. It never blocks.
func (q *Queue) Enqueue(req *alert.Request) error {
	if req == nil {
		return errNilRequest
	}

	q.mu.Lock()
	q.items = append(q.items, req.Clone())
	q.mu.Unlock()

	q.wake()

	return nil
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Dequeue removes the oldest request. It waits at most timeout for one to
// arrive and returns false when none did or ctx is done.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*alert.Request, bool) {
	if req, ok := q.pop(); ok {
		return req, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-timer.C:
			return q.pop()
		case <-q.signal:
			if req, ok := q.pop(); ok {
				return req, true
			}
		}
	}
}

func (q *Queue) pop() (*alert.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	if len(q.items) > 0 {
		q.wake()
	}

	return req, true
}

// wake leaves a token for a waiting Dequeue.
func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
