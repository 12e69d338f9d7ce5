// Package app wires all Muninn subsystems into a running voice assistant.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the processing loops until the context is
// cancelled, and Shutdown tears everything down in order.
//
// Run supervises four loops with an errgroup: wake events, STT transcripts,
// the deadline ticker, and the admin HTTP server. Each loop feeds the dialog
// [dialog.Driver] and delivers its responses — speaking text through TTS,
// playing stored recordings, and managing the recorder for the guided
// capture wizard.
//
// For testing, inject mock implementations via the Providers struct and
// functional options (WithStore, WithMetrics, WithMicReader). When an option
// is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/config"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dialog"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dispatch"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/health"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/intent"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/observe"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resilience"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resolve"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/roster"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/smalltalk"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
	storemock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store/mock"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store/postgres"
)

// sttRetryDelay is how long to wait before redialling a failed STT stream.
const sttRetryDelay = 3 * time.Second

// tickInterval is the cadence of the deadline ticker. Sub-second so an
// expired follow-up window is noticed promptly.
const tickInterval = 250 * time.Millisecond

// commandVocabulary biases the recognizer towards the words Muninn actually
// cares about. Roster names and aliases are appended at stream start.
var commandVocabulary = []string{
	"play", "story", "stories", "record", "memory", "message", "messages",
	"birthday", "stop", "listening", "time", "weather", "joke", "list",
	"skip", "none", "advice", "wisdom", "last", "recording",
}

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the corresponding loop is skipped. Populated
// by main.go via the config registry.
type Providers struct {
	STT     stt.Provider
	TTS     tts.Provider
	Wake    wake.Detector
	Capture capture.Recorder
	Player  player.Player
}

// App owns all subsystem lifetimes and runs the Muninn conversation loops.
type App struct {
	cfg       *config.Config
	providers *Providers
	logger    *slog.Logger

	roster   *roster.Roster
	pipeline *transcript.Pipeline
	driver   *dialog.Driver
	records  store.Store
	metrics  *observe.Metrics

	// micReader, when set, replaces the arecord-backed PCM stream that
	// feeds the STT session.
	micReader io.Reader

	// capturing gates the mic pump while the wizard recorder owns the
	// audio device.
	capturing     atomic.Bool
	captureMu     sync.Mutex
	captureHandle capture.Handle

	// gaugeMu guards the session-activity bookkeeping behind the
	// active-sessions gauge and turn histogram.
	gaugeMu       sync.Mutex
	sessionActive bool
	lastTurns     int

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a record store instead of connecting to PostgreSQL.
func WithStore(s store.Store) Option {
	return func(a *App) { a.records = s }
}

// WithMetrics injects a metrics bundle instead of using the global provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMicReader injects a PCM source for the STT stream instead of spawning
// arecord.
func WithMicReader(r io.Reader) Option {
	return func(a *App) { a.micReader = r }
}

// New creates an App by wiring all subsystems together: roster, transcript
// pipeline, resolver, classifier, record store, dispatcher, and the dialog
// driver. The providers struct comes from main.go.
//
// A missing or malformed roster or correction table is a startup error.
// A missing PostgreSQL DSN falls back to a volatile in-memory store so the
// assistant still answers time, weather, and joke requests.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}

	ros, err := roster.Load(cfg.RosterFile)
	if err != nil {
		return nil, fmt.Errorf("app: load roster: %w", err)
	}
	a.roster = ros

	pipelineOpts := []transcript.PipelineOption{}
	if cfg.CorrectionsFile != "" {
		table, err := transcript.LoadTable(cfg.CorrectionsFile)
		if err != nil {
			return nil, fmt.Errorf("app: load correction table: %w", err)
		}
		pipelineOpts = append(pipelineOpts, transcript.WithTable(table))
	}
	matcher := phonetic.New(phonetic.WithThreshold(cfg.Conversation.SimilarityThreshold))
	pipelineOpts = append(pipelineOpts, transcript.WithMatcher(matcher, rosterWords(ros)))
	a.pipeline = transcript.NewPipeline(pipelineOpts...)

	resolver := resolve.New(ros, resolve.WithThreshold(cfg.Conversation.SimilarityThreshold))
	classifier := intent.New(resolver, intent.WithFallbackThreshold(cfg.Conversation.FallbackThreshold))

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	talk := smalltalk.New(cfg.Weather.Latitude, cfg.Weather.Longitude)
	dispatcher := dispatch.New(a.records, talk, a.logger, dispatch.WithMetrics(a.metrics))

	a.driver = dialog.NewDriver(
		dialog.Config{
			FollowupTimeout:    cfg.Conversation.FollowupTimeout,
			SessionLifetime:    cfg.Conversation.SessionLifetime,
			MaxTurns:           cfg.Conversation.MaxTurns,
			CaptureMaxDuration: cfg.Conversation.CaptureMaxDuration,
			CaptureEarlyStop:   providers.Capture != nil && providers.Capture.EarlyStopSupported(),
		},
		a.pipeline,
		classifier,
		resolver,
		dispatcher,
		a.logger,
	)

	if providers.Wake != nil {
		a.closers = append(a.closers, providers.Wake.Close)
	}

	return a, nil
}

// initStore connects the record store or falls back to an in-memory one.
func (a *App) initStore(ctx context.Context) error {
	if a.records != nil {
		return nil
	}
	dsn := a.cfg.Store.PostgresDSN
	if dsn == "" {
		a.logger.Warn("app: no postgres_dsn configured, using volatile in-memory store")
		a.records = storemock.New()
		return nil
	}
	st, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.records = resilience.GuardStore(st, resilience.Config{Name: "postgres"})
	a.closers = append(a.closers, func() error {
		st.Close()
		return nil
	})
	return nil
}

// rosterWords flattens every canonical name and alias into one word list,
// used both for phonetic alignment candidates and recognizer phrase biasing.
func rosterWords(ros *roster.Roster) []string {
	var words []string
	for _, e := range ros.Entries() {
		words = append(words, e.Name)
		words = append(words, e.Aliases...)
	}
	return words
}

// Run starts the conversation loops and blocks until ctx is cancelled or a
// loop fails fatally. It returns context.Canceled on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.providers.Wake != nil {
		g.Go(func() error { return a.wakeLoop(ctx) })
	} else {
		a.logger.Warn("app: no wake detector configured")
	}

	if a.providers.STT != nil {
		g.Go(func() error { return a.transcriptLoop(ctx) })
	} else {
		a.logger.Warn("app: no stt provider configured")
	}

	g.Go(func() error { return a.tickLoop(ctx) })

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		g.Go(func() error { return a.serveAdmin(ctx, addr) })
	}

	a.logger.Info("app running",
		"people", a.roster.Len(),
		"listen_addr", a.cfg.Server.ListenAddr,
	)
	return g.Wait()
}

// wakeLoop pumps wake events into the driver.
func (a *App) wakeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-a.providers.Wake.Events():
			if !ok {
				return errors.New("app: wake detector closed")
			}
			resp := a.driver.OnWake(ev.At)
			a.deliver(ctx, resp)
			a.syncSessionGauge(ctx)
		}
	}
}

// transcriptLoop keeps one STT stream alive, redialling after failures.
func (a *App) transcriptLoop(ctx context.Context) error {
	for {
		if err := a.runSTTSession(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("app: stt session ended, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sttRetryDelay):
		}
	}
}

// runSTTSession opens one recognizer stream, feeds it mic audio, and routes
// final transcripts into the driver. The elapsed time between the first
// partial and the final of each utterance is recorded as recognition
// latency.
func (a *App) runSTTSession(ctx context.Context) error {
	sess, err := a.providers.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: 16000,
		Channels:   1,
		Phrases:    append(rosterWords(a.roster), commandVocabulary...),
	})
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer sess.Close()

	micCtx, cancelMic := context.WithCancel(ctx)
	defer cancelMic()
	go a.pumpMic(micCtx, sess)

	var utteranceStart time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-sess.Partials():
			if !ok {
				return errors.New("partials channel closed")
			}
			if utteranceStart.IsZero() && p.Text != "" {
				utteranceStart = time.Now()
			}
		case f, ok := <-sess.Finals():
			if !ok {
				return errors.New("finals channel closed")
			}
			if f.Text == "" {
				continue
			}
			if !utteranceStart.IsZero() {
				a.metrics.STTDuration.Record(ctx, time.Since(utteranceStart).Seconds())
				utteranceStart = time.Time{}
			}
			a.handleTranscript(ctx, f.Text)
		}
	}
}

// handleTranscript records transcript metrics and routes the text into the
// driver. The pipeline is deterministic, so normalizing here for the metric
// and again inside the driver yields the same result.
func (a *App) handleTranscript(ctx context.Context, text string) {
	res := a.pipeline.Normalize(text)
	a.metrics.RecordTranscript(ctx, res.Corrected != res.Original)

	resp := a.driver.OnTranscript(ctx, text, time.Now())
	a.deliver(ctx, resp)
	a.syncSessionGauge(ctx)
}

// tickLoop drives the driver's deadline enforcement.
func (a *App) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			resp := a.driver.OnTick(now)
			a.deliver(ctx, resp)
			a.syncSessionGauge(ctx)
		}
	}
}

// serveAdmin runs the admin HTTP server (/healthz, /readyz, /metrics) until
// ctx is cancelled.
func (a *App) serveAdmin(ctx context.Context, addr string) error {
	checkers := []health.Checker{
		health.Ping("roster", func(context.Context) error {
			if a.roster.Len() == 0 {
				return errors.New("roster is empty")
			}
			return nil
		}),
	}
	if pinger, ok := a.records.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Ping("store", pinger.Ping))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: admin server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("app: admin server shutdown", "error", err)
		}
		return ctx.Err()
	}
}

// deliver carries out one driver response: interrupt an in-flight capture,
// speak the text, play any stored recordings, start the recorder.
func (a *App) deliver(ctx context.Context, resp *dialog.Response) {
	if resp == nil {
		return
	}
	if resp.InterruptCapture {
		a.stopCapture()
	}
	if resp.Text != "" {
		a.speak(ctx, resp.Text)
	}
	for _, ref := range resp.AudioRefs {
		if err := a.playFile(ctx, ref); err != nil {
			a.logger.Warn("app: playback failed", "ref", ref, "error", err)
			break
		}
	}
	if resp.BeginCapture {
		a.beginCapture(ctx)
	}
}

// speak synthesizes text and plays the resulting WAV. Without TTS or a
// player the text is logged instead, which keeps headless test setups quiet
// but observable.
func (a *App) speak(ctx context.Context, text string) {
	if a.providers.TTS == nil || a.providers.Player == nil {
		a.logger.Info("app: speak", "text", text)
		return
	}
	start := time.Now()
	wav, err := a.providers.TTS.Synthesize(ctx, text)
	if err != nil {
		a.logger.Error("app: synthesize failed", "error", err)
		return
	}
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err := a.providers.Player.PlayWAV(ctx, wav); err != nil {
		a.logger.Error("app: play synthesized speech failed", "error", err)
	}
}

// playFile plays one stored recording.
func (a *App) playFile(ctx context.Context, ref string) error {
	if a.providers.Player == nil {
		a.logger.Info("app: play", "ref", ref)
		return nil
	}
	return a.providers.Player.PlayFile(ctx, ref)
}

// beginCapture starts the wizard recording and reports its outcome back to
// the driver when it ends.
func (a *App) beginCapture(ctx context.Context) {
	if a.providers.Capture == nil {
		err := errors.New("app: no capture provider configured")
		a.deliver(ctx, a.driver.OnCaptureComplete(ctx, "", 0, err, time.Now()))
		return
	}

	handle, err := a.providers.Capture.Start(ctx, a.cfg.Conversation.CaptureMaxDuration)
	if err != nil {
		a.logger.Error("app: start capture failed", "error", err)
		a.deliver(ctx, a.driver.OnCaptureComplete(ctx, "", 0, err, time.Now()))
		return
	}

	a.captureMu.Lock()
	a.captureHandle = handle
	a.captureMu.Unlock()
	a.capturing.Store(true)

	go func() {
		clip, werr := handle.Wait(ctx)
		a.capturing.Store(false)
		a.captureMu.Lock()
		a.captureHandle = nil
		a.captureMu.Unlock()

		resp := a.driver.OnCaptureComplete(ctx, clip.AudioRef, clip.Duration, werr, time.Now())
		a.deliver(ctx, resp)
		a.syncSessionGauge(ctx)
	}()
}

// stopCapture asks the in-flight recording, if any, to finish early. The
// Wait goroutine in beginCapture observes the result and reports it.
func (a *App) stopCapture() {
	a.captureMu.Lock()
	handle := a.captureHandle
	a.captureMu.Unlock()
	if handle == nil {
		return
	}
	if err := handle.Stop(); err != nil {
		a.logger.Warn("app: stop capture failed", "error", err)
	}
}

// syncSessionGauge reconciles the active-sessions gauge and the per-session
// turn histogram with the driver's current state. Called after every driver
// interaction.
func (a *App) syncSessionGauge(ctx context.Context) {
	snap := a.driver.Snapshot()
	active := snap.Mode != dialog.ModeDormant

	a.gaugeMu.Lock()
	defer a.gaugeMu.Unlock()

	if active && snap.TurnCount > a.lastTurns {
		a.lastTurns = snap.TurnCount
	}
	if active == a.sessionActive {
		return
	}
	a.sessionActive = active
	if active {
		a.metrics.ActiveSessions.Add(ctx, 1)
		return
	}
	a.metrics.ActiveSessions.Add(ctx, -1)
	if a.lastTurns > 0 {
		a.metrics.SessionTurns.Record(ctx, int64(a.lastTurns))
	}
	a.lastTurns = 0
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.logger.Info("app: shutting down", "closers", len(a.closers))

		a.stopCapture()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.logger.Warn("app: shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.logger.Warn("app: closer error", "index", i, "error", err)
			}
		}

		a.logger.Info("app: shutdown complete")
	})
	return shutdownErr
}
