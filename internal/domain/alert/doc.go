// Package alert contains the core domain types of the attention check:
// the daily alert window, alert requests with optional arithmetic challenges,
// and the record that tracks a single alert from firing to resolution.
package alert
