// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a streaming recognizer (a local Vosk server in the
// default deployment) and exposes a uniform interface. The central
// abstraction is SessionHandle: once opened, a session accepts raw PCM audio
// frames and emits two streams of Transcript values — low-latency partials
// for responsiveness and authoritative finals that feed the dialogue driver.
//
// Implementations must be safe for concurrent use. Audio input and transcript
// output channels are goroutine-safe by construction.
package stt

import "context"

// StreamConfig describes the audio format for a new STT session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. The default deployment uses
	// 16000 (mono microphone capture).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono, which is what most
	// recognizers require. Implementors may downmix internally.
	Channels int

	// Phrases is an optional restricted vocabulary. Recognizers that support
	// grammar hints bias towards these phrases; others ignore them.
	Phrases []string
}

// SessionHandle represents an open STT streaming session.
//
// Callers must call Close when the session is no longer needed; failing to do
// so may leak goroutines and network connections inside the implementation.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for transcription.
	// The chunk must match the SampleRate and Channels agreed in
	// StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// transcripts. These drive listening indicators but are never handed to
	// the dialogue driver. The channel is closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting authoritative transcripts,
	// one per utterance. These are what the dialogue driver consumes.
	// The channel is closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases all
	// associated resources. After Close returns, the Partials and Finals
	// channels are closed. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// StartStream opens a new streaming transcription session with the given
	// audio format. The returned SessionHandle is ready to accept audio
	// immediately.
	//
	// Returns an error if the session cannot be established (connection
	// failure, unsupported configuration, or ctx already cancelled). The
	// caller owns the SessionHandle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
