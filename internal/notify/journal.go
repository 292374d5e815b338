package notify

import (
	"context"
	"sync"

	"github.com/oshokin/attention-check/internal/logger"
)

// Journal keeps the most recent notifications in memory.
type Journal struct {
	mu      sync.RWMutex
	entries []Notification
	next    int
	full    bool
}

// NewJournal creates a journal holding up to size notifications.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = 1
	}

	return &Journal{
		entries: make([]Notification, size),
	}
}

// Name implements Sink.
func (j *Journal) Name() string {
	return "journal"
}

// Send implements Sink by recording n, evicting the oldest entry when full.
func (j *Journal) Send(_ context.Context, n Notification) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = n
	j.next = (j.next + 1) % len(j.entries)

	if j.next == 0 {
		j.full = true
	}

	return nil
}

// Recent returns stored notifications, oldest first.
func (j *Journal) Recent() []Notification {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.full {
		return append([]Notification(nil), j.entries[:j.next]...)
	}

	result := make([]Notification, 0, len(j.entries))
	result = append(result, j.entries[j.next:]...)
	result = append(result, j.entries[:j.next]...)

	return result
}

// LogSink writes every notification to the log.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string {
	return "log"
}

// Send implements Sink.
func (LogSink) Send(ctx context.Context, n Notification) error {
	logger.InfoKV(ctx, "Notification", "subject", n.Subject, "message", n.Message, "at", n.At)

	return nil
}
