package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/app"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/config"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/observe"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
	capmock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture/mock"
	playermock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player/mock"
	sttmock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt/mock"
	ttsmock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts/mock"
	wakemock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake/mock"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
	storemock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store/mock"
)

const rosterYAML = `
people:
  - name: Cassie
    aliases: [kasey, cass]
  - name: Beau
    aliases: [bo]
`

// fixture bundles one wired App with all its mocks.
type fixture struct {
	app      *app.App
	wake     *wakemock.Detector
	session  *sttmock.Session
	tts      *ttsmock.Provider
	player   *playermock.Player
	recorder *capmock.Recorder
	records  *storemock.Store
}

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(rosterYAML), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{RosterFile: writeRoster(t)}
	cfg.Conversation = config.ConversationConfig{
		FollowupTimeout:     30 * time.Second,
		SessionLifetime:     60 * time.Second,
		MaxTurns:            10,
		CaptureMaxDuration:  60 * time.Second,
		SimilarityThreshold: 0.65,
		FallbackThreshold:   0.55,
	}
	return cfg
}

func newFixture(t *testing.T, handle *capmock.Handle) *fixture {
	t.Helper()

	f := &fixture{
		wake:     wakemock.New(),
		session:  sttmock.NewSession(),
		tts:      &ttsmock.Provider{},
		player:   &playermock.Player{},
		recorder: capmock.New(),
		records:  storemock.New(),
	}
	if handle != nil {
		f.recorder.Handle = handle
	}

	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	providers := &app.Providers{
		STT:     &sttmock.Provider{Session: f.session},
		TTS:     f.tts,
		Wake:    f.wake,
		Capture: f.recorder,
		Player:  f.player,
	}

	a, err := app.New(context.Background(), testConfig(t), providers,
		app.WithStore(f.records),
		app.WithMetrics(metrics),
		app.WithMicReader(strings.NewReader("")),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	return f
}

// waitFor polls cond until it holds or the deadline lapses.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// spokenContains reports whether any synthesized text contains want.
func spokenContains(tts *ttsmock.Provider, want string) bool {
	for _, text := range tts.SpokenTexts() {
		if strings.Contains(text, want) {
			return true
		}
	}
	return false
}

func TestNew_MissingRosterIsFatal(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{RosterFile: filepath.Join(t.TempDir(), "nope.yaml")}
	_, err := app.New(context.Background(), cfg, &app.Providers{})
	if err == nil {
		t.Fatal("expected error for missing roster, got nil")
	}
}

func TestRun_WakeThenTimeCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	f.wake.Trigger()
	waitFor(t, "greeting", func() bool { return spokenContains(f.tts, "Yes?") })

	f.session.EmitFinal("what time is it")
	waitFor(t, "time response", func() bool { return spokenContains(f.tts, "It is ") })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}

func TestRun_TranscriptWhileDormantIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.app.Run(ctx) }()

	// No wake word: the text must produce no speech.
	f.session.EmitFinal("what time is it")
	time.Sleep(200 * time.Millisecond)
	if got := f.tts.SpokenTexts(); len(got) != 0 {
		t.Errorf("spoke %v without a wake word", got)
	}
}

func TestRun_StoredRecordingIsPlayed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := f.records.Insert(ctx, store.Record{
		Person:   "Beau",
		Category: store.CategoryStory,
		Title:    "the fishing trip",
		AudioRef: "/rec/fishing.wav",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	go func() { _ = f.app.Run(ctx) }()

	f.wake.Trigger()
	waitFor(t, "greeting", func() bool { return spokenContains(f.tts, "Yes?") })

	f.session.EmitFinal("play a story from beau")
	waitFor(t, "playback", func() bool {
		files := f.player.Files()
		return len(files) == 1 && files[0] == "/rec/fishing.wav"
	})
}

func TestRun_GuidedRecordingPersistsRecord(t *testing.T) {
	t.Parallel()

	handle := capmock.NewHandle()
	f := newFixture(t, handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = f.app.Run(ctx) }()

	f.wake.Trigger()
	waitFor(t, "greeting", func() bool { return spokenContains(f.tts, "Yes?") })

	f.session.EmitFinal("record a memory")
	f.session.EmitFinal("cassie")
	f.session.EmitFinal("a story")
	f.session.EmitFinal("the lake trip")
	f.session.EmitFinal("none")
	waitFor(t, "capture prompt", func() bool { return spokenContains(f.tts, "start speaking") })

	handle.Finish(capture.Clip{AudioRef: "/rec/lake.wav", Duration: 20 * time.Second}, nil)

	waitFor(t, "record saved", func() bool {
		recs, err := f.records.Query(ctx, store.Filters{})
		return err == nil && len(recs) == 1
	})

	recs, _ := f.records.Query(ctx, store.Filters{})
	if recs[0].Person != "Cassie" || recs[0].AudioRef != "/rec/lake.wav" {
		t.Errorf("saved record = %+v", recs[0])
	}
	waitFor(t, "save confirmation", func() bool { return spokenContains(f.tts, "I saved") })
}
