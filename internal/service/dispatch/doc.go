// Package dispatch serializes alerts from every trigger source. Only one
// alert is presented at a time, and waiting submissions are served in the
// order they arrived.
package dispatch
