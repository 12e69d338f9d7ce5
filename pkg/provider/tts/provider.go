// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (a local Piper server in
// the default deployment) behind one batch call: text in, WAV audio out. The
// assistant speaks short prompts and confirmations, so per-utterance batch
// synthesis keeps the interface small without hurting latency.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text as a complete WAV file. The returned bytes
	// include the RIFF header, ready to hand to an audio player.
	//
	// Returns an error if the backend cannot be reached, rejects the text,
	// or ctx is cancelled before synthesis finishes.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
