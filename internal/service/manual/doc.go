// Package manual queues operator-requested alerts and forwards them to the
// dispatcher one at a time.
package manual
