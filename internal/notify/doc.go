// Package notify delivers escalation notifications. Notify never blocks
// the caller and never reports delivery errors back: messages are queued,
// fanned out to every sink by a background worker and dropped with a log
// line when the queue is full.
package notify
