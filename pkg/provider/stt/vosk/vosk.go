// Package vosk provides an STT provider backed by a Vosk WebSocket server
// (alphacep/vosk-server). It implements the stt.Provider interface.
//
// Vosk runs fully offline, which is what keeps the assistant functional on a
// home network without any cloud credentials.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
)

const (
	defaultEndpoint   = "ws://localhost:2700"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Vosk Provider.
type Option func(*Provider)

// WithSampleRate sets the provider-level default sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// Provider implements stt.Provider backed by a Vosk WebSocket server.
type Provider struct {
	endpoint   string
	sampleRate int
}

// New creates a Vosk Provider for the given WebSocket endpoint
// (e.g. "ws://localhost:2700"). An empty endpoint uses the default.
func New(endpoint string, opts ...Option) *Provider {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	p := &Provider{
		endpoint:   endpoint,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// sessionConfig is the configuration message Vosk expects as the first frame.
type sessionConfig struct {
	Config struct {
		SampleRate int      `json:"sample_rate"`
		PhraseList []string `json:"phrase_list,omitempty"`
		Words      bool     `json:"words"`
	} `json:"config"`
}

// StartStream opens a streaming transcription session against the Vosk
// server. It respects cfg.SampleRate and cfg.Phrases.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	conn, _, err := websocket.Dial(ctx, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("vosk: dial %s: %w", p.endpoint, err)
	}

	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}
	var sc sessionConfig
	sc.Config.SampleRate = sr
	sc.Config.PhraseList = cfg.Phrases
	// Per-word alternatives carry the confidences that feed meanConfidence.
	sc.Config.Words = true
	raw, err := json.Marshal(sc)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "config marshal failed")
		return nil, fmt.Errorf("vosk: marshal config: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		conn.Close(websocket.StatusInternalError, "config write failed")
		return nil, fmt.Errorf("vosk: send config: %w", err)
	}

	sess := &session{
		conn:     conn,
		partials: make(chan stt.Transcript, 64),
		finals:   make(chan stt.Transcript, 64),
		audio:    make(chan []byte, 256),
		done:     make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// ---- session ----

// voskResponse is the JSON structure the server sends per decoded chunk.
// Partial results carry "partial"; utterance ends carry "text" plus optional
// per-word detail in "result".
type voskResponse struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
	Result  []struct {
		Word string  `json:"word"`
		Conf float64 `json:"conf"`
	} `json:"result"`
}

// session is a live Vosk streaming session. It implements stt.SessionHandle.
type session struct {
	conn     *websocket.Conn
	partials chan stt.Transcript
	finals   chan stt.Transcript
	audio    chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// SendAudio queues a PCM audio chunk for delivery to the server.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("vosk: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("vosk: session is closed")
	}
}

// Partials returns the channel of interim transcripts.
func (s *session) Partials() <-chan stt.Transcript { return s.partials }

// Finals returns the channel of final transcripts.
func (s *session) Finals() <-chan stt.Transcript { return s.finals }

// Close terminates the session cleanly, asking the server to flush its last
// utterance first.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"eof" : 1}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to the
// server.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain queued audio so the final utterance is complete.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from the server and dispatches them to the
// partials and finals channels.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		t, ok := parseResponse(msg)
		if !ok {
			continue
		}

		if t.IsFinal {
			select {
			case s.finals <- t:
			case <-s.done:
			}
		} else {
			select {
			case s.partials <- t:
			case <-s.done:
			}
		}
	}
}

// parseResponse parses a raw server message into a Transcript. Returns
// (zero, false) for messages that carry no speech, such as empty partials
// between utterances.
func parseResponse(data []byte) (stt.Transcript, bool) {
	var resp voskResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return stt.Transcript{}, false
	}

	if resp.Text != "" {
		return stt.Transcript{
			Text:       resp.Text,
			IsFinal:    true,
			Confidence: meanConfidence(resp),
		}, true
	}
	if resp.Partial != "" {
		return stt.Transcript{Text: resp.Partial}, true
	}
	return stt.Transcript{}, false
}

// meanConfidence averages per-word confidences when the server reports them.
func meanConfidence(resp voskResponse) float64 {
	if len(resp.Result) == 0 {
		return 0
	}
	var sum float64
	for _, w := range resp.Result {
		sum += w.Conf
	}
	return sum / float64(len(resp.Result))
}
