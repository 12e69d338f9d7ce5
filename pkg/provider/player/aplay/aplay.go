// Package aplay provides a Player backed by the ALSA aplay utility. It
// implements the player.Player interface.
package aplay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player"
)

// Compile-time interface assertion.
var _ player.Player = (*Player)(nil)

const defaultDevice = "default"

// Option is a functional option for configuring a Player.
type Option func(*Player)

// WithDevice selects the ALSA playback device (e.g. "plughw:0,0").
func WithDevice(device string) Option {
	return func(p *Player) {
		p.device = device
	}
}

// Player spawns one aplay process per playback.
type Player struct {
	device string
}

// New returns a Player for the default ALSA device unless overridden.
func New(opts ...Option) *Player {
	p := &Player{device: defaultDevice}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PlayFile plays the audio file at path to completion.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("aplay: path must not be empty")
	}
	cmd := exec.CommandContext(ctx, "aplay", "-q", "-D", p.device, path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("aplay: play %s: %w", path, err)
	}
	return nil
}

// PlayWAV pipes in-memory WAV audio through aplay's stdin.
func (p *Player) PlayWAV(ctx context.Context, wav []byte) error {
	if len(wav) == 0 {
		return errors.New("aplay: wav must not be empty")
	}
	cmd := exec.CommandContext(ctx, "aplay", "-q", "-D", p.device)
	cmd.Stdin = bytes.NewReader(wav)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("aplay: play stream: %w", err)
	}
	return nil
}
