package piper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts/piper"
)

// minimalWAV is the smallest payload the provider accepts as audio.
var minimalWAV = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(minimalWAV)
	}))
	defer srv.Close()

	p, err := piper.New(srv.URL, piper.WithVoice("en_US-amy-medium"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wav, err := p.Synthesize(context.Background(), "Yes?")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(wav, minimalWAV) {
		t.Errorf("wav = %q, want server payload", wav)
	}

	var req struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if req.Text != "Yes?" || req.Voice != "en_US-amy-medium" {
		t.Errorf("request = %+v", req)
	}
}

func TestSynthesize_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	p, err := piper.New("http://localhost:5000")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("Synthesize(blank): want error, got nil")
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := piper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("Synthesize: want error on 500, got nil")
	}
}

func TestSynthesize_RejectsNonWAVBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not audio</html>"))
	}))
	defer srv.Close()

	p, err := piper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("Synthesize: want error on non-WAV body, got nil")
	}
}

func TestNew_RequiresServerURL(t *testing.T) {
	t.Parallel()

	if _, err := piper.New(""); err == nil {
		t.Fatal("New(\"\"): want error, got nil")
	}
}
