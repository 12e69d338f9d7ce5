// Package arecord provides a Recorder backed by the ALSA arecord utility. It
// implements the capture.Recorder interface.
//
// arecord finalizes the WAV header when it receives SIGINT, which is what
// makes early stop work: the stop command interrupts the process and the
// partial file is still a valid recording.
package arecord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
)

// Compile-time interface assertion.
var _ capture.Recorder = (*Recorder)(nil)

const (
	defaultSampleRate = 16000
	defaultDevice     = "default"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithSampleRate sets the capture sample rate in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(r *Recorder) {
		r.sampleRate = rate
	}
}

// WithDevice selects the ALSA capture device (e.g. "plughw:1,0").
func WithDevice(device string) Option {
	return func(r *Recorder) {
		r.device = device
	}
}

// Recorder spawns one arecord process per recording and writes WAV files
// into its directory.
type Recorder struct {
	dir        string
	sampleRate int
	device     string
}

// New returns a Recorder writing into dir. The directory is created if it
// does not exist.
func New(dir string, opts ...Option) (*Recorder, error) {
	if dir == "" {
		return nil, errors.New("arecord: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("arecord: create recordings dir: %w", err)
	}
	r := &Recorder{
		dir:        dir,
		sampleRate: defaultSampleRate,
		device:     defaultDevice,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// EarlyStopSupported reports true: SIGINT ends a recording cleanly.
func (r *Recorder) EarlyStopSupported() bool { return true }

// Start launches arecord bounded by maxDuration.
func (r *Recorder) Start(ctx context.Context, maxDuration time.Duration) (capture.Handle, error) {
	if maxDuration <= 0 {
		return nil, errors.New("arecord: maxDuration must be positive")
	}

	path := filepath.Join(r.dir, time.Now().UTC().Format("20060102-150405.000")+".wav")
	seconds := int(maxDuration.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	cmd := exec.CommandContext(ctx, "arecord",
		"-q",
		"-D", r.device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(r.sampleRate),
		"-c", "1",
		"-d", strconv.Itoa(seconds),
		path,
	)
	// Let arecord catch the interrupt and finalize the WAV header instead of
	// being killed outright on context cancellation.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("arecord: start: %w", err)
	}

	h := &handle{
		cmd:     cmd,
		path:    path,
		started: time.Now(),
		waitErr: make(chan error, 1),
	}
	go func() {
		h.waitErr <- cmd.Wait()
	}()
	return h, nil
}

// handle is a live arecord process. It implements capture.Handle.
type handle struct {
	cmd     *exec.Cmd
	path    string
	started time.Time

	waitErr chan error

	mu      sync.Mutex
	stopped bool
	ended   time.Time
}

// Stop interrupts the recording. arecord flushes and exits on SIGINT.
func (h *handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true
	h.ended = time.Now()
	if err := h.cmd.Process.Signal(syscall.SIGINT); err != nil {
		return fmt.Errorf("arecord: interrupt: %w", err)
	}
	return nil
}

// Wait blocks for process exit and returns the finished clip.
func (h *handle) Wait(ctx context.Context) (capture.Clip, error) {
	select {
	case err := <-h.waitErr:
		if err != nil && !h.wasStopped() {
			return capture.Clip{}, fmt.Errorf("arecord: recording failed: %w", err)
		}
	case <-ctx.Done():
		_ = h.Stop()
		return capture.Clip{}, ctx.Err()
	}

	if _, err := os.Stat(h.path); err != nil {
		return capture.Clip{}, fmt.Errorf("arecord: recording file missing: %w", err)
	}
	return capture.Clip{
		AudioRef: h.path,
		Duration: h.elapsed(),
	}, nil
}

// wasStopped reports whether Stop was called; an interrupted process exits
// non-zero even though the recording is good.
func (h *handle) wasStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// elapsed returns the recorded length, using the stop time when the
// recording was interrupted.
func (h *handle) elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return h.ended.Sub(h.started)
	}
	return time.Since(h.started)
}
