package control

import (
	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/notify"
)

// NoMessageIndex marks an EnqueueParams without a predefined message.
const NoMessageIndex = -1

// EnqueueParams describes a manual alert request.
type EnqueueParams struct {
	// Message is the alert text. Empty means the configured default.
	Message string
	// MessageIndex selects a predefined message instead of Message.
	MessageIndex int
	// PlaySound loops the alert clip while the alert is shown.
	PlaySound bool
	// Math asks the server to attach an arithmetic challenge.
	Math bool
	// Challenge is a custom question and answer.
	Challenge *alert.Challenge
	// RequestedBy identifies the operator, usually "user@host".
	RequestedBy string
}

// EnqueueResult reports where the request landed.
type EnqueueResult struct {
	// Queued is the queue length right after enqueueing.
	Queued int
}

// Status is a snapshot of the server.
type Status struct {
	// InFlight is the alert being shown, if any.
	InFlight *alert.Record
	// Question is the challenge the in-flight alert currently asks.
	Question string
	// Waiting is the number of alerts waiting for the dispatcher.
	Waiting int
	// Queued is the number of manual requests not yet picked up.
	Queued int
	// Window is the configured daily window.
	Window string
	// WindowActive reports whether the window is open now.
	WindowActive bool
	// Recent holds the latest notifications, oldest first.
	Recent []notify.Notification
}

// RespondResult is the effect of a RespondAlert call.
type RespondResult struct {
	// Resolved reports whether the alert is now final.
	Resolved bool
	// Question is the replacement challenge after a wrong answer.
	Question string
	// Outcome is the alert outcome after the response.
	Outcome alert.Outcome
}
