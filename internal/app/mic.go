package app

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
)

// micChunkSize is 100ms of 16 kHz mono 16-bit PCM.
const micChunkSize = 3200

// micSampleRate matches the recognizer stream configuration.
const micSampleRate = 16000

// pumpMic streams raw PCM from the microphone into the STT session until
// ctx is cancelled or the source fails. Audio is discarded while the wizard
// recorder owns the device, so a memory being captured never doubles as
// command input.
func (a *App) pumpMic(ctx context.Context, sess stt.SessionHandle) {
	src, err := a.openMic(ctx)
	if err != nil {
		a.logger.Error("app: open microphone failed", "error", err)
		return
	}
	defer src.Close()

	buf := make([]byte, micChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := src.Read(buf)
		if n > 0 && !a.capturing.Load() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if serr := sess.SendAudio(chunk); serr != nil {
				a.logger.Warn("app: send audio failed", "error", serr)
				return
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				a.logger.Warn("app: microphone read failed", "error", err)
			}
			return
		}
	}
}

// openMic returns the PCM source: an injected reader when one was provided,
// otherwise a raw arecord stream on the configured capture device.
func (a *App) openMic(ctx context.Context) (io.ReadCloser, error) {
	if a.micReader != nil {
		return io.NopCloser(a.micReader), nil
	}

	args := []string{
		"-q",
		"-t", "raw",
		"-f", "S16_LE",
		"-r", strconv.Itoa(micSampleRate),
		"-c", "1",
	}
	if dev := a.cfg.Providers.Capture.Device; dev != "" {
		args = append(args, "-D", dev)
	}

	cmd := exec.CommandContext(ctx, "arecord", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("app: mic stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("app: start arecord: %w", err)
	}

	return &micStream{ReadCloser: stdout, cmd: cmd}, nil
}

// micStream ties the arecord process lifetime to the reader.
type micStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Close stops the arecord process and reaps it.
func (m *micStream) Close() error {
	if m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
	}
	_ = m.ReadCloser.Close()
	return m.cmd.Wait()
}
