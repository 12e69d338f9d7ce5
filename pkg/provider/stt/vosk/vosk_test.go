package vosk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantText string
		final    bool
	}{
		{
			name:     "final with words",
			raw:      `{"text":"play a story from beau","result":[{"word":"play","conf":1.0},{"word":"beau","conf":0.8}]}`,
			wantOK:   true,
			wantText: "play a story from beau",
			final:    true,
		},
		{
			name:     "partial",
			raw:      `{"partial":"play a sto"}`,
			wantOK:   true,
			wantText: "play a sto",
		},
		{
			name:   "empty partial between utterances",
			raw:    `{"partial":""}`,
			wantOK: false,
		},
		{
			name:   "empty final",
			raw:    `{"text":""}`,
			wantOK: false,
		},
		{
			name:   "garbage",
			raw:    `not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr, ok := parseResponse([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("parseResponse ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tr.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", tr.Text, tt.wantText)
			}
			if tr.IsFinal != tt.final {
				t.Errorf("IsFinal = %v, want %v", tr.IsFinal, tt.final)
			}
		})
	}
}

func TestParseResponse_MeanConfidence(t *testing.T) {
	t.Parallel()

	tr, ok := parseResponse([]byte(`{"text":"hi","result":[{"word":"hi","conf":0.5},{"word":"there","conf":1.0}]}`))
	if !ok {
		t.Fatal("parseResponse: not ok")
	}
	if tr.Confidence != 0.75 {
		t.Errorf("Confidence = %v, want 0.75", tr.Confidence)
	}
}

// TestStreamRoundTrip runs a scripted recognizer server and checks the full
// session lifecycle: config frame, audio frames, partials, finals, close.
func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		ctx := r.Context()

		// First frame is the session config.
		typ, raw, err := conn.Read(ctx)
		if err != nil {
			t.Errorf("read config: %v", err)
			return
		}
		if typ != websocket.MessageText {
			t.Errorf("config frame type = %v, want text", typ)
		}
		var sc sessionConfig
		if err := json.Unmarshal(raw, &sc); err != nil {
			t.Errorf("config not JSON: %v", err)
		}
		if sc.Config.SampleRate != 16000 {
			t.Errorf("sample_rate = %d, want 16000", sc.Config.SampleRate)
		}
		if !sc.Config.Words {
			t.Error("words = false, want true so results carry per-word confidence")
		}

		// One audio frame, then a partial and a final.
		if _, _, err := conn.Read(ctx); err != nil {
			t.Errorf("read audio: %v", err)
			return
		}
		conn.Write(ctx, websocket.MessageText, []byte(`{"partial":"what time"}`))
		conn.Write(ctx, websocket.MessageText, []byte(`{"text":"what time is it"}`))

		// Wait for eof, then let the connection wind down.
		for {
			_, raw, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if strings.Contains(string(raw), "eof") {
				return
			}
		}
	}))
	defer srv.Close()

	p := New("ws" + strings.TrimPrefix(srv.URL, "http"))
	sess, err := p.StartStream(context.Background(), stt.StreamConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer sess.Close()

	if err := sess.SendAudio(make([]byte, 320)); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	select {
	case tr := <-sess.Partials():
		if tr.Text != "what time" || tr.IsFinal {
			t.Errorf("partial = %+v", tr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for partial")
	}

	select {
	case tr := <-sess.Finals():
		if tr.Text != "what time is it" || !tr.IsFinal {
			t.Errorf("final = %+v", tr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for final")
	}

	if err := sess.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := sess.SendAudio([]byte{0}); err == nil {
		t.Error("SendAudio after Close: want error, got nil")
	}
}
