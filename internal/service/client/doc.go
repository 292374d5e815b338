// Package client implements the attention-trigger commands.
//
// Trigger queues manual alerts, prints the server status and answers the
// alert currently shown through the control API.
package client
