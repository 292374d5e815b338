// Package common holds helpers shared by the attention check binaries.
//
// It provides a gRPC client for the control service with per-call timeouts,
// detection of the operator identity used to tag manual alerts and a guard
// that keeps a second server instance from starting.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
