// Package config defines the YAML settings shared by the attention check
// binaries.
//
// Load, Save and Validate follow the usual read, decode and check flow.
// Fields that do not make sense are repaired with the last known good value
// instead of failing, and Watcher keeps a live snapshot while the settings
// file is edited.
package config
