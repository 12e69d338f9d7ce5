// Package mock provides test doubles for the capture package interfaces.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
)

// StartCall records a single invocation of Recorder.Start.
type StartCall struct {
	// MaxDuration is the bound passed to Start.
	MaxDuration time.Duration
}

// Recorder is a mock implementation of capture.Recorder.
type Recorder struct {
	mu sync.Mutex

	// Handle is returned by Start. If nil, Start returns a fresh [Handle].
	Handle capture.Handle

	// StartErr, if non-nil, is returned as the error from Start.
	StartErr error

	// EarlyStop is what EarlyStopSupported reports. Defaults to true via
	// [New].
	EarlyStop bool

	// StartCalls records every call to Start.
	StartCalls []StartCall
}

// New returns a Recorder that supports early stop.
func New() *Recorder {
	return &Recorder{EarlyStop: true}
}

// Start records the call and returns Handle, StartErr.
func (r *Recorder) Start(_ context.Context, maxDuration time.Duration) (capture.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartCalls = append(r.StartCalls, StartCall{MaxDuration: maxDuration})
	if r.StartErr != nil {
		return nil, r.StartErr
	}
	if r.Handle != nil {
		return r.Handle, nil
	}
	return NewHandle(), nil
}

// EarlyStopSupported reports EarlyStop.
func (r *Recorder) EarlyStopSupported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.EarlyStop
}

// Ensure Recorder implements capture.Recorder at compile time.
var _ capture.Recorder = (*Recorder)(nil)

// Handle is a mock implementation of capture.Handle. Tests end the recording
// with [Handle.Finish].
type Handle struct {
	mu sync.Mutex

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	// StopErr, if non-nil, is returned by Stop.
	StopErr error

	done chan struct{}
	clip capture.Clip
	err  error
}

// NewHandle returns an in-flight mock recording.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Finish ends the recording with the given result. Wait unblocks with it.
// Calling Finish more than once panics, matching a real recorder's
// single-exit lifecycle.
func (h *Handle) Finish(clip capture.Clip, err error) {
	h.mu.Lock()
	h.clip = clip
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Wait blocks until Finish is called or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) (capture.Clip, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.clip, h.err
	case <-ctx.Done():
		return capture.Clip{}, ctx.Err()
	}
}

// Stop records the call and returns StopErr.
func (h *Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.StopCallCount++
	return h.StopErr
}

// Ensure Handle implements capture.Handle at compile time.
var _ capture.Handle = (*Handle)(nil)
