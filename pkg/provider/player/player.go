// Package player defines the Player interface for audio output: the spoken
// responses the TTS provider synthesizes and the stored recordings the
// command layer queues for playback.
//
// Implementations must be safe for concurrent use, but playback itself is
// serialized by the caller — the assistant never speaks over itself.
package player

import "context"

// Player plays audio to completion.
type Player interface {
	// PlayFile plays the audio file at path and returns when playback ends
	// or ctx is cancelled.
	PlayFile(ctx context.Context, path string) error

	// PlayWAV plays in-memory WAV audio and returns when playback ends or
	// ctx is cancelled.
	PlayWAV(ctx context.Context, wav []byte) error
}
