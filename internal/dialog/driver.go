// Package dialog implements the conversation state machine that sits between
// the wake word and the command dispatcher.
//
// Exactly one [Session] exists per process. It moves between three modes:
//
//   - Dormant: nothing is listened to except the wake word.
//   - Active: a command is being processed.
//   - AwaitingFollowup: a response was just spoken and the assistant keeps
//     listening for a follow-up without requiring a new wake word.
//
// Two deadlines bound every conversation: a hard lifetime armed at wake, and
// a rolling follow-up window re-armed after every response. Whichever lapses
// first returns the session to Dormant on the next tick. A turn cap does the
// same regardless of time. Deadlines are plain values compared against the
// clock in [Driver.OnTick]; re-arming overwrites the previous value, so a
// stale timer can never kill a refreshed session.
//
// The [Driver] is the single writer for all session state. It is safe for
// concurrent use; every entry point takes the same mutex.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dialog/wizard"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/intent"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resolve"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Mode is the session's lifecycle state.
type Mode string

// Session modes.
const (
	ModeDormant          Mode = "dormant"
	ModeActive           Mode = "active"
	ModeAwaitingFollowup Mode = "awaiting_followup"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeDormant, ModeActive, ModeAwaitingFollowup:
		return true
	}
	return false
}

// Spoken responses reused across the driver.
const (
	msgGreeting      = "Yes?"
	msgNotUnderstood = "I did not understand that command. Please try again."
	msgTimeout       = "I did not hear a command. Returning to sleep mode."
	msgTurnCap       = "Returning to sleep mode."
	msgGoodbye       = "Goodbye."
	msgStoreTrouble  = "I'm having trouble reaching my memory right now. Please try again later."
)

// Response is what the outer loop should do after a driver call: speak Text
// when non-empty, play AudioRefs in order, and manage the recorder per the
// two capture flags.
type Response struct {
	// Text is spoken through the TTS provider.
	Text string

	// AudioRefs are recordings to play after Text, in order.
	AudioRefs []string

	// BeginCapture asks the loop to start the recorder and report back via
	// [Driver.OnCaptureComplete].
	BeginCapture bool

	// InterruptCapture asks the loop to abort an in-flight recording.
	InterruptCapture bool
}

// Dispatcher executes classified commands. Implemented by the dispatch
// package; the indirection keeps this package free of store and provider
// wiring.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent) (Response, error)
}

// Config bounds a conversation. All fields must be positive.
type Config struct {
	// FollowupTimeout is the rolling window the assistant keeps listening
	// after each response.
	FollowupTimeout time.Duration

	// SessionLifetime is the hard cap on a conversation, armed at wake.
	SessionLifetime time.Duration

	// MaxTurns is the number of executed commands (including re-prompted
	// unknowns) before the session is forced Dormant.
	MaxTurns int

	// CaptureMaxDuration is the recorder's upper bound. While a wizard
	// capture runs, both deadlines are pushed past this bound so the ticker
	// cannot kill the recording mid-take.
	CaptureMaxDuration time.Duration

	// CaptureEarlyStop reports whether the recorder can end a capture before
	// CaptureMaxDuration. It selects the wizard's capture prompt.
	CaptureEarlyStop bool
}

// Session is the conversation state owned by the [Driver].
type Session struct {
	// Mode is the current lifecycle state.
	Mode Mode

	// TurnCount is the number of commands executed since wake.
	TurnCount int

	// HardDeadline is when the conversation expires outright.
	HardDeadline time.Time

	// FollowupDeadline is when the rolling follow-up window expires.
	FollowupDeadline time.Time
}

// Driver owns the single session and serializes every mutation.
type Driver struct {
	mu sync.Mutex

	cfg        Config
	pipeline   *transcript.Pipeline
	classifier *intent.Classifier
	resolver   *resolve.Resolver
	dispatcher Dispatcher
	logger     *slog.Logger

	session   Session
	wizard    *wizard.Wizard
	capturing bool
}

// NewDriver assembles a Driver. The session starts Dormant.
func NewDriver(
	cfg Config,
	pipeline *transcript.Pipeline,
	classifier *intent.Classifier,
	resolver *resolve.Resolver,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:        cfg,
		pipeline:   pipeline,
		classifier: classifier,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		session:    Session{Mode: ModeDormant},
	}
}

// Snapshot returns a copy of the current session state.
func (d *Driver) Snapshot() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// OnWake handles a wake-word event. A wake while a conversation is already
// running is ignored — at most one dialogue exists at a time.
func (d *Driver) OnWake(now time.Time) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session.Mode != ModeDormant {
		d.logger.Debug("dialog: wake ignored, session already active", "mode", d.session.Mode)
		return nil
	}

	d.session = Session{
		Mode:             ModeAwaitingFollowup,
		HardDeadline:     now.Add(d.cfg.SessionLifetime),
		FollowupDeadline: now.Add(d.cfg.FollowupTimeout),
	}
	d.logger.Info("dialog: session started")
	return &Response{Text: msgGreeting}
}

// OnTranscript handles one final transcript from the recognizer. Returns nil
// when the session is Dormant (the text is discarded).
func (d *Driver) OnTranscript(ctx context.Context, text string, now time.Time) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session.Mode == ModeDormant {
		return nil
	}
	d.session.Mode = ModeActive

	res := d.pipeline.Normalize(text)
	if len(res.Corrections) > 0 {
		d.logger.Debug("dialog: transcript corrected",
			"original", res.Original,
			"corrected", res.Corrected,
		)
	}

	// Stop always wins, even over a pending wizard or an in-flight capture.
	if in := d.classifier.Classify(res.Corrected); in.Kind == intent.KindStop {
		return d.stop(ctx)
	}

	// While the recorder runs, everything but Stop is part of the memory
	// being captured, not a command.
	if d.capturing {
		return nil
	}

	if d.wizard != nil {
		return d.wizardAnswer(ctx, res.Corrected, now)
	}

	return d.command(ctx, res.Corrected, now)
}

// OnCaptureComplete handles the end of a wizard recording. err non-nil (or a
// missing wizard) discards the capture without persisting anything.
func (d *Driver) OnCaptureComplete(ctx context.Context, audioRef string, duration time.Duration, err error, now time.Time) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.capturing = false
	if d.wizard == nil {
		return nil
	}
	w := d.wizard

	if err != nil {
		d.logger.Warn("dialog: capture failed", "error", err)
		d.dropWizard(ctx)
		return d.settle(ctx, now, "The recording did not work. Let's try again later.")
	}
	d.wizard = nil

	rec, out := w.Complete(audioRef, duration)
	return d.persist(ctx, rec, out.Prompt, now)
}

// persist stores a completed wizard record via the dispatcher's store path.
func (d *Driver) persist(ctx context.Context, rec store.Record, prompt string, now time.Time) *Response {
	if saver, ok := d.dispatcher.(RecordSaver); ok {
		if err := saver.SaveRecord(ctx, rec); err != nil {
			d.logger.Error("dialog: save record failed", "error", err)
			d.session = Session{Mode: ModeDormant}
			return &Response{Text: msgStoreTrouble}
		}
	}
	return d.settle(ctx, now, prompt)
}

// settle closes out one wizard outcome: when the turn cap is spent the
// session goes Dormant, otherwise the follow-up window re-arms. The wizard
// launch consumed a turn, so the cap can land exactly here. Caller must hold
// mu.
func (d *Driver) settle(ctx context.Context, now time.Time, text string) *Response {
	if d.session.TurnCount >= d.cfg.MaxTurns {
		d.reset(ctx)
		return &Response{Text: text + " " + msgTurnCap}
	}
	d.awaitFollowup(now)
	return &Response{Text: text}
}

// RecordSaver is implemented by dispatchers that can persist wizard output.
type RecordSaver interface {
	SaveRecord(ctx context.Context, rec store.Record) error
}

// WizardObserver is implemented by dispatchers that track abandoned guided
// recording flows.
type WizardObserver interface {
	WizardCancelled(ctx context.Context)
}

// dropWizard abandons a pending wizard, if any, and notifies the dispatcher.
// Caller must hold mu.
func (d *Driver) dropWizard(ctx context.Context) {
	if d.wizard == nil {
		return
	}
	d.wizard = nil
	if obs, ok := d.dispatcher.(WizardObserver); ok {
		obs.WizardCancelled(ctx)
	}
}

// OnTick enforces the deadlines. Call it at a sub-second cadence; it returns
// a response only when the session just expired.
func (d *Driver) OnTick(now time.Time) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session.Mode == ModeDormant {
		return nil
	}

	// A spent turn cap with no wizard or capture in flight forces Dormant
	// regardless of the time budget.
	if d.wizard == nil && !d.capturing && d.session.TurnCount >= d.cfg.MaxTurns {
		d.logger.Info("dialog: turn cap reached", "turns", d.session.TurnCount)
		d.reset(context.Background())
		return &Response{Text: msgTurnCap}
	}

	if now.Before(d.session.HardDeadline) && now.Before(d.session.FollowupDeadline) {
		return nil
	}

	d.logger.Info("dialog: session timed out",
		"turns", d.session.TurnCount,
		"hard_expired", !now.Before(d.session.HardDeadline),
	)
	interrupted := d.capturing
	d.reset(context.Background())
	return &Response{Text: msgTimeout, InterruptCapture: interrupted}
}

// stop ends the conversation immediately. Caller must hold mu.
func (d *Driver) stop(ctx context.Context) *Response {
	interrupted := d.capturing
	d.reset(ctx)
	d.logger.Info("dialog: session stopped by user")
	return &Response{Text: msgGoodbye, InterruptCapture: interrupted}
}

// reset clears all conversation state back to Dormant. Caller must hold mu.
func (d *Driver) reset(ctx context.Context) {
	d.dropWizard(ctx)
	d.session = Session{Mode: ModeDormant}
	d.capturing = false
}

// awaitFollowup re-arms the follow-up window and returns to the listening
// state. Caller must hold mu.
func (d *Driver) awaitFollowup(now time.Time) {
	d.session.Mode = ModeAwaitingFollowup
	d.session.FollowupDeadline = now.Add(d.cfg.FollowupTimeout)
}

// wizardAnswer routes a transcript into the pending wizard. Caller must hold
// mu.
func (d *Driver) wizardAnswer(ctx context.Context, text string, now time.Time) *Response {
	out := d.wizard.Answer(text)
	switch out.State {
	case wizard.StateCancelled:
		// Retry exhaustion abandons the wizard but keeps the conversation
		// alive, unless the turn cap is already spent.
		d.dropWizard(ctx)
		return d.settle(ctx, now, out.Prompt)
	case wizard.StateBeginCapture:
		d.capturing = true
		d.session.Mode = ModeActive
		// The recorder owns the conversation now. Both deadlines move past
		// the capture bound, otherwise the follow-up window would lapse
		// mid-recording and the ticker would discard the clip.
		deadline := now.Add(d.cfg.CaptureMaxDuration + d.cfg.FollowupTimeout)
		d.session.FollowupDeadline = deadline
		if deadline.After(d.session.HardDeadline) {
			d.session.HardDeadline = deadline
		}
		return &Response{Text: out.Prompt, BeginCapture: true}
	default:
		d.awaitFollowup(now)
		return &Response{Text: out.Prompt}
	}
}

// command classifies and executes one top-level command. Caller must hold mu.
func (d *Driver) command(ctx context.Context, corrected string, now time.Time) *Response {
	in := d.classifier.Classify(corrected)
	d.session.TurnCount++
	d.logger.Info("dialog: command",
		"kind", string(in.Kind),
		"method", in.Method,
		"person", in.Person,
		"turn", d.session.TurnCount,
	)

	var resp Response
	switch in.Kind {
	case intent.KindUnknown:
		resp = Response{Text: msgNotUnderstood}

	case intent.KindBeginGuidedRecording, intent.KindRecordMessage:
		d.wizard = wizard.New(d.resolver, in.Person, wizard.WithEarlyStop(d.cfg.CaptureEarlyStop))
		out := d.wizard.Start()
		d.awaitFollowup(now)
		return &Response{Text: out.Prompt}

	default:
		var err error
		resp, err = d.dispatcher.Dispatch(ctx, in)
		if err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				d.logger.Error("dialog: store unavailable", "error", err)
				d.reset(ctx)
				return &Response{Text: msgStoreTrouble}
			}
			d.logger.Error("dialog: dispatch failed", "kind", string(in.Kind), "error", err)
			resp = Response{Text: msgNotUnderstood}
		}
	}

	// The turn cap beats the time budget.
	if d.session.TurnCount >= d.cfg.MaxTurns {
		d.reset(ctx)
		resp.Text = resp.Text + " " + msgTurnCap
		return &resp
	}

	d.awaitFollowup(now)
	return &resp
}
