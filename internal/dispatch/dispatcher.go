// Package dispatch executes classified commands against the record store and
// the small-talk helpers, producing the spoken responses the dialogue layer
// hands to the TTS provider.
//
// Zero-result queries always produce an explicit spoken absence ("I don't
// have any stories from Beau.") — never silence. Store failures are
// surfaced as [store.ErrUnavailable] so the dialogue driver can apologise
// and go back to sleep instead of crashing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dialog"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/intent"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/observe"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// SmallTalk answers the commands that need no record store: time, weather,
// and jokes. Implemented by the smalltalk package.
type SmallTalk interface {
	// Time phrases the current wall-clock time.
	Time(now time.Time) string

	// Weather fetches and phrases current conditions.
	Weather(ctx context.Context) (string, error)

	// Joke returns one joke.
	Joke() string
}

// Compile-time checks against the dialogue layer's expectations.
var (
	_ dialog.Dispatcher     = (*Dispatcher)(nil)
	_ dialog.RecordSaver    = (*Dispatcher)(nil)
	_ dialog.WizardObserver = (*Dispatcher)(nil)
)

// Dispatcher maps intents to store and small-talk calls. It is read-only
// after construction and safe for concurrent use.
type Dispatcher struct {
	store   store.Store
	talk    SmallTalk
	logger  *slog.Logger
	clock   func() time.Time
	metrics *observe.Metrics
}

// Option is a functional option for configuring a [Dispatcher].
type Option func(*Dispatcher)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

// WithMetrics enables intent and save instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New returns a Dispatcher over the given store and small-talk helper.
func New(st store.Store, talk SmallTalk, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		store:  st,
		talk:   talk,
		logger: logger,
		clock:  time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch executes in and returns the response to speak. Store failures
// come back wrapped in [store.ErrUnavailable].
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent) (dialog.Response, error) {
	if d.metrics != nil {
		d.metrics.RecordIntent(ctx, string(in.Kind), in.Method)
	}
	switch in.Kind {
	case intent.KindPlayStory:
		return d.playStory(ctx, in)
	case intent.KindPlayMessage:
		return d.playMessage(ctx, in)
	case intent.KindPlayAllMessages:
		return d.playAllMessages(ctx)
	case intent.KindPlayLastRecording:
		return d.playLastRecording(ctx)
	case intent.KindListStories:
		return d.listStories(ctx)
	case intent.KindGetTime:
		return dialog.Response{Text: d.talk.Time(d.clock())}, nil
	case intent.KindGetWeather:
		return d.weather(ctx)
	case intent.KindTellJoke:
		return dialog.Response{Text: d.talk.Joke()}, nil
	default:
		return dialog.Response{}, fmt.Errorf("dispatch: no handler for intent %q", in.Kind)
	}
}

// SaveRecord persists a completed wizard recording.
func (d *Dispatcher) SaveRecord(ctx context.Context, rec store.Record) error {
	id, err := d.store.Insert(ctx, rec)
	if err != nil {
		return storeErr("insert record", err)
	}
	d.logger.Info("dispatch: record saved",
		"id", id,
		"person", rec.Person,
		"category", string(rec.Category),
		"length", string(rec.Length),
	)
	if d.metrics != nil {
		d.metrics.RecordWizardOutcome(ctx, "completed")
		d.metrics.RecordSaved(ctx, string(rec.Category))
	}
	return nil
}

// WizardCancelled records an abandoned guided recording flow.
func (d *Dispatcher) WizardCancelled(ctx context.Context) {
	if d.metrics != nil {
		d.metrics.RecordWizardOutcome(ctx, "cancelled")
	}
}

// playStory picks one matching recording at random.
func (d *Dispatcher) playStory(ctx context.Context, in intent.Intent) (dialog.Response, error) {
	if in.PersonUnresolved {
		return d.personNotFound(ctx), nil
	}
	rec, err := d.store.Random(ctx, store.Filters{
		Person:   in.Person,
		Category: in.Category,
		Length:   in.Length,
	})
	if err != nil {
		return dialog.Response{}, storeErr("random", err)
	}
	if rec == nil {
		if in.Person != "" {
			return dialog.Response{Text: fmt.Sprintf("I don't have any stories from %s.", in.Person)}, nil
		}
		return dialog.Response{Text: "I don't have any stories yet."}, nil
	}
	return dialog.Response{
		Text:      fmt.Sprintf("Here is %s, from %s.", rec.Title, rec.Person),
		AudioRefs: []string{rec.AudioRef},
	}, nil
}

// playMessage plays one birthday message from a specific person.
func (d *Dispatcher) playMessage(ctx context.Context, in intent.Intent) (dialog.Response, error) {
	if in.PersonUnresolved || in.Person == "" {
		return d.personNotFound(ctx), nil
	}
	rec, err := d.store.Random(ctx, store.Filters{
		Person:   in.Person,
		Category: store.CategoryBirthday,
	})
	if err != nil {
		return dialog.Response{}, storeErr("random", err)
	}
	if rec == nil {
		return dialog.Response{Text: fmt.Sprintf("I don't have a birthday message from %s.", in.Person)}, nil
	}
	return dialog.Response{
		Text:      fmt.Sprintf("Here is a message from %s.", rec.Person),
		AudioRefs: []string{rec.AudioRef},
	}, nil
}

// personNotFound answers a command whose spoken name did not resolve. No
// store call happens; an unfiltered query would play somebody else's
// recording.
func (d *Dispatcher) personNotFound(ctx context.Context) dialog.Response {
	if d.metrics != nil {
		d.metrics.RecordResolverMiss(ctx)
	}
	return dialog.Response{Text: "I couldn't tell who you meant. No family member found."}
}

// playAllMessages queues every birthday message.
func (d *Dispatcher) playAllMessages(ctx context.Context) (dialog.Response, error) {
	recs, err := d.store.Query(ctx, store.Filters{Category: store.CategoryBirthday})
	if err != nil {
		return dialog.Response{}, storeErr("query", err)
	}
	if len(recs) == 0 {
		return dialog.Response{Text: "I don't have any birthday messages yet."}, nil
	}
	refs := make([]string, len(recs))
	for i, r := range recs {
		refs[i] = r.AudioRef
	}
	return dialog.Response{
		Text:      fmt.Sprintf("Playing %s.", countNoun(len(recs), "birthday message", "birthday messages")),
		AudioRefs: refs,
	}, nil
}

// playLastRecording replays the newest recording.
func (d *Dispatcher) playLastRecording(ctx context.Context) (dialog.Response, error) {
	recs, err := d.store.Query(ctx, store.Filters{})
	if err != nil {
		return dialog.Response{}, storeErr("query", err)
	}
	if len(recs) == 0 {
		return dialog.Response{Text: "I don't have any recordings yet."}, nil
	}
	last := recs[0]
	return dialog.Response{
		Text:      fmt.Sprintf("Here is the latest recording, %s from %s.", last.Title, last.Person),
		AudioRefs: []string{last.AudioRef},
	}, nil
}

// listStories speaks the aggregate breakdown of the whole collection.
func (d *Dispatcher) listStories(ctx context.Context) (dialog.Response, error) {
	recs, err := d.store.Query(ctx, store.Filters{})
	if err != nil {
		return dialog.Response{}, storeErr("query", err)
	}
	return dialog.Response{Text: FormatSummary(Aggregate(recs))}, nil
}

// weather degrades to an apology instead of an error: a failed forecast
// should not end the conversation.
func (d *Dispatcher) weather(ctx context.Context) (dialog.Response, error) {
	text, err := d.talk.Weather(ctx)
	if err != nil {
		d.logger.Warn("dispatch: weather lookup failed", "error", err)
		return dialog.Response{Text: "I couldn't reach the weather service right now."}, nil
	}
	return dialog.Response{Text: text}, nil
}

// storeErr tags a store failure so the dialogue layer recognises it.
func storeErr(op string, err error) error {
	return fmt.Errorf("dispatch: %s: %w", op, errors.Join(store.ErrUnavailable, err))
}
