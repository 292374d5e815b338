// Package audio plays WAV clips through oto. A single output context is
// opened lazily on first use and shared by every playback.
package audio
