// Package mock provides a test double for the wake package interfaces.
package mock

import (
	"sync"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake"
)

// Detector is a mock implementation of wake.Detector. Tests fire wake events
// with [Detector.Trigger].
type Detector struct {
	mu     sync.Mutex
	events chan wake.Event
	closed bool

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// New returns a Detector with a buffered event channel.
func New() *Detector {
	return &Detector{
		events: make(chan wake.Event, 4),
	}
}

// Trigger fires one wake event.
func (d *Detector) Trigger() {
	d.events <- wake.Event{At: time.Now()}
}

// Events returns the wake event channel.
func (d *Detector) Events() <-chan wake.Event { return d.events }

// Close records the call and closes the event channel once.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

// Ensure Detector implements wake.Detector at compile time.
var _ wake.Detector = (*Detector)(nil)
