// Package capture defines the Recorder interface for long-form audio
// capture: the raw memory recordings the guided flow saves to the store.
//
// Capture is distinct from STT streaming. The recognizer keeps running for
// the stop command while the recorder writes the full-quality WAV file that
// will be played back later.
//
// Implementations must be safe for concurrent use.
package capture

import (
	"context"
	"time"
)

// Clip is a finished recording.
type Clip struct {
	// AudioRef locates the recorded audio, typically a file path.
	AudioRef string

	// Duration is the recorded length.
	Duration time.Duration
}

// Handle represents an in-flight recording.
type Handle interface {
	// Wait blocks until the recording ends — because it hit its maximum
	// duration, because Stop was called, or because ctx was cancelled — and
	// returns the finished clip.
	Wait(ctx context.Context) (Clip, error)

	// Stop ends the recording early. The clip is still finalized and
	// returned by Wait. Calling Stop more than once is safe.
	Stop() error
}

// Recorder starts recordings.
type Recorder interface {
	// Start begins a new recording bounded by maxDuration. The returned
	// Handle is already recording.
	Start(ctx context.Context, maxDuration time.Duration) (Handle, error)

	// EarlyStopSupported reports whether Stop can end a recording before
	// maxDuration. Recorders without early stop always run to the bound, and
	// the dialogue layer phrases its prompts accordingly.
	EarlyStopSupported() bool
}
