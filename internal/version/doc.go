// Package version exposes build metadata for the attention check binaries.
//
// Version, Commit and BuildTime are injected through ldflags. IsNewer
// compares dotted versions for the update checker.
package version
