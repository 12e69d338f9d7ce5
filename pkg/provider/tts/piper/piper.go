// Package piper provides a TTS provider backed by a local Piper HTTP server.
// It implements the tts.Provider interface.
//
// Piper runs fully offline on modest hardware, which is why it is the default
// voice for the assistant.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const defaultTimeout = 15 * time.Second

// Option is a functional option for configuring a Piper Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 15s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithVoice selects a voice model on multi-voice servers. An empty voice uses
// the server's default model.
func WithVoice(voice string) Option {
	return func(p *Provider) {
		p.voice = voice
	}
}

// Provider implements tts.Provider backed by a Piper HTTP server. It is safe
// for concurrent use.
type Provider struct {
	serverURL  string
	voice      string
	httpClient *http.Client
}

// New creates a Piper Provider targeting the server at serverURL
// (e.g. "http://localhost:5000"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("piper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesisRequest is the JSON body Piper's HTTP server accepts.
type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Synthesize performs one POST to the Piper server and returns the WAV
// response.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("piper: text must not be empty")
	}

	data, err := json.Marshal(synthesisRequest{Text: text, Voice: p.voice})
	if err != nil {
		return nil, fmt.Errorf("piper: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("piper: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("piper: POST %s: %w", p.serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piper: server returned status %d", resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("piper: read WAV response: %w", err)
	}
	if err := validateWAV(wav); err != nil {
		return nil, err
	}
	return wav, nil
}

// validateWAV checks that the response is a RIFF/WAVE container, so a stray
// HTML error page never reaches the audio player.
func validateWAV(wav []byte) error {
	if len(wav) < 12 {
		return errors.New("piper: response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return errors.New("piper: response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return errors.New("piper: response missing WAVE identifier")
	}
	return nil
}
