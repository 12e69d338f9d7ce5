// Package mock provides a test double for the tts package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// WAV is returned by every Synthesize call. If nil, a minimal valid RIFF
	// header is returned instead.
	WAV []byte

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns WAV, SynthesizeErr.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	if p.WAV != nil {
		return p.WAV, nil
	}
	return []byte("RIFF\x00\x00\x00\x00WAVE"), nil
}

// SpokenTexts returns the texts passed to Synthesize so far. Thread-safe.
func (p *Provider) SpokenTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	texts := make([]string, len(p.SynthesizeCalls))
	for i, c := range p.SynthesizeCalls {
		texts[i] = c.Text
	}
	return texts
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
