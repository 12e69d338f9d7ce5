// Package sigusr provides a wake detector driven by SIGUSR1. It implements
// the wake.Detector interface.
//
// A process signal is the simplest wake source that works on any Linux box:
// a hotword engine, a GPIO button script, or a developer shell can all
// `kill -USR1` the assistant to wake it.
package sigusr

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake"
)

// Compile-time interface assertion.
var _ wake.Detector = (*Detector)(nil)

// Detector converts SIGUSR1 deliveries into wake events.
type Detector struct {
	events chan wake.Event
	sigs   chan os.Signal
	done   chan struct{}
	once   sync.Once
}

// New installs the signal handler and starts listening.
func New() *Detector {
	d := &Detector{
		events: make(chan wake.Event, 4),
		sigs:   make(chan os.Signal, 4),
		done:   make(chan struct{}),
	}
	signal.Notify(d.sigs, syscall.SIGUSR1)
	go d.run()
	return d
}

// Events returns the wake event channel.
func (d *Detector) Events() <-chan wake.Event { return d.events }

// Close removes the signal handler and closes the event channel.
func (d *Detector) Close() error {
	d.once.Do(func() {
		signal.Stop(d.sigs)
		close(d.done)
	})
	return nil
}

func (d *Detector) run() {
	defer close(d.events)
	for {
		select {
		case <-d.sigs:
			select {
			case d.events <- wake.Event{At: time.Now()}:
			default:
				// A wake is already pending; coalesce.
			}
		case <-d.done:
			return
		}
	}
}
