// Package loop runs the long-lived background cycles of the server.
//
// Every cycle is supervised: errors and panics are logged, reported to the
// notifier and followed by a fixed backoff. Only cancellation of the
// context ends a loop.
package loop
