// Package wake defines the Detector interface for wake-word sources.
//
// A wake detector is anything that can tell the assistant "someone wants your
// attention": a hotword engine, a hardware button, or a process signal. The
// interface is a single event channel so the application loop can select on
// it alongside transcripts and ticks.
//
// Implementations must be safe for concurrent use.
package wake

import "time"

// Event is one wake trigger.
type Event struct {
	// At is when the trigger fired.
	At time.Time
}

// Detector emits wake events until closed.
type Detector interface {
	// Events returns the channel wake triggers arrive on. The channel is
	// closed when the detector shuts down.
	Events() <-chan Event

	// Close stops the detector and closes the event channel. Calling Close
	// more than once is safe and returns nil.
	Close() error
}
