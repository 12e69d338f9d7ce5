// Package wizard implements the guided five-slot recording flow: who the
// memory is from, what kind it is, its title, its tags, and finally the
// audio capture itself.
//
// The wizard is a pure state machine over spoken answers. It never touches
// the store or the recorder; the dialogue driver feeds it transcripts and
// acts on the returned [Outcome]. Slots only ever advance — a rejected
// answer re-prompts the same slot, and when a slot exhausts its retry budget
// the whole wizard cancels without leaving any partial record behind.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resolve"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Slot identifies one step of the guided flow.
type Slot string

// The five slots, in order.
const (
	SlotPerson   Slot = "person"
	SlotCategory Slot = "category"
	SlotTitle    Slot = "title"
	SlotTags     Slot = "tags"
	SlotCapture  Slot = "capture"
)

// maxRetries is how many rejected answers a single slot tolerates before the
// wizard cancels.
const maxRetries = 2

// State describes what the dialogue driver should do next.
type State int

const (
	// StateContinue means the wizard needs another spoken answer; speak
	// Outcome.Prompt and wait.
	StateContinue State = iota

	// StateBeginCapture means all spoken slots are filled; start the
	// recorder, speak Outcome.Prompt, and call [Wizard.Complete] with the
	// captured clip.
	StateBeginCapture

	// StateDone means the wizard finished and produced a record.
	StateDone

	// StateCancelled means the wizard gave up; no record was or will be
	// produced.
	StateCancelled
)

// Outcome is the wizard's reaction to one answer.
type Outcome struct {
	// State directs the driver's next action.
	State State

	// Prompt is what the assistant should say next. Always set except
	// after [Wizard.Complete].
	Prompt string
}

// Wizard is the in-flight guided recording flow. It is NOT safe for
// concurrent use; the dialogue driver owns it and serializes access.
type Wizard struct {
	resolver *resolve.Resolver

	slot    Slot
	retries int

	person    string
	category  store.Category
	title     string
	tags      []string
	earlyStop bool
}

// Option is a functional option for configuring a [Wizard].
type Option func(*Wizard)

// WithEarlyStop tells the wizard whether the recorder can end a capture
// before its maximum duration. It selects the capture prompt: recorders
// without early stop run to their bound, so telling the speaker to "say
// stop" would be a lie. Default: true.
func WithEarlyStop(supported bool) Option {
	return func(w *Wizard) {
		w.earlyStop = supported
	}
}

// New returns a Wizard positioned at the person slot. When person is
// non-empty (the command already named someone) the flow starts at the
// category slot instead.
func New(r *resolve.Resolver, person string, opts ...Option) *Wizard {
	w := &Wizard{
		resolver:  r,
		slot:      SlotPerson,
		person:    person,
		earlyStop: true,
	}
	if person != "" {
		w.slot = SlotCategory
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Slot returns the slot the wizard is currently waiting on.
func (w *Wizard) Slot() Slot { return w.slot }

// Start returns the opening prompt for the current slot.
func (w *Wizard) Start() Outcome {
	return Outcome{State: StateContinue, Prompt: w.prompt()}
}

// Answer feeds one spoken answer to the current slot.
//
// A valid answer advances to the next slot. An invalid answer re-prompts the
// same slot until its retry budget is spent, then cancels the wizard. The
// title and tags slots accept anything, so only person and category can
// consume retries.
func (w *Wizard) Answer(text string) Outcome {
	text = strings.TrimSpace(text)

	switch w.slot {
	case SlotPerson:
		e, ok := w.resolver.Person(text)
		if !ok {
			return w.reject("I don't know that family member. Who is this memory from?")
		}
		w.person = e.Name
		return w.advance(SlotCategory)

	case SlotCategory:
		if text == "" || isSkip(text) {
			w.category = store.CategoryStory
			return w.advance(SlotTitle)
		}
		c, ok := w.resolver.Category(text)
		if !ok {
			return w.reject("I didn't catch that. Is this a story, advice, a joke, or wisdom?")
		}
		w.category = c
		return w.advance(SlotTitle)

	case SlotTitle:
		if text == "" || isSkip(text) {
			w.title = fmt.Sprintf("%s's %s", w.person, w.category)
		} else {
			w.title = text
		}
		return w.advance(SlotTags)

	case SlotTags:
		w.tags = parseTags(text)
		w.slot = SlotCapture
		return Outcome{
			State:  StateBeginCapture,
			Prompt: w.capturePrompt(),
		}
	}

	// Answer while capturing is a driver bug; hold position.
	return Outcome{State: StateContinue, Prompt: w.prompt()}
}

// Complete finishes the wizard with the captured clip and returns the record
// to persist. The record has no ID or creation time; the store assigns both.
func (w *Wizard) Complete(audioRef string, duration time.Duration) (store.Record, Outcome) {
	rec := store.Record{
		Person:   w.person,
		Category: w.category,
		Length:   store.BucketForDuration(duration),
		Title:    w.title,
		Tags:     w.tags,
		AudioRef: audioRef,
		Duration: duration,
	}
	out := Outcome{
		State:  StateDone,
		Prompt: fmt.Sprintf("Got it. I saved %s.", w.title),
	}
	return rec, out
}

// Cancel abandons the wizard. No record is produced.
func (w *Wizard) Cancel() Outcome {
	return Outcome{
		State:  StateCancelled,
		Prompt: "Okay, I cancelled the recording.",
	}
}

// advance moves to the next slot and resets the retry budget.
func (w *Wizard) advance(next Slot) Outcome {
	w.slot = next
	w.retries = 0
	return Outcome{State: StateContinue, Prompt: w.prompt()}
}

// reject burns one retry on the current slot, cancelling when the budget is
// spent.
func (w *Wizard) reject(prompt string) Outcome {
	w.retries++
	if w.retries > maxRetries {
		return Outcome{
			State:  StateCancelled,
			Prompt: "I'm having trouble understanding. Let's try again later.",
		}
	}
	return Outcome{State: StateContinue, Prompt: prompt}
}

// capturePrompt phrases the hand-off to the recorder per its capabilities.
func (w *Wizard) capturePrompt() string {
	if w.earlyStop {
		return "Alright, start speaking after the beep. Say stop when you are finished."
	}
	return "Alright, start speaking after the beep. I will stop recording on my own."
}

// prompt returns the question for the current slot.
func (w *Wizard) prompt() string {
	switch w.slot {
	case SlotPerson:
		return "Who is this memory from?"
	case SlotCategory:
		return "What kind of memory is it? A story, advice, a joke, or wisdom?"
	case SlotTitle:
		return "What should I call it? You can say skip."
	case SlotTags:
		return "Any tags? Say none to skip."
	default:
		return "Recording."
	}
}

// isSkip reports whether the answer declines the slot.
func isSkip(text string) bool {
	switch strings.ToLower(text) {
	case "skip", "no", "none", "nothing", "pass":
		return true
	}
	return false
}

// parseTags splits a spoken tag list on commas and the word "and".
// "none" (and friends) yields an empty list.
func parseTags(text string) []string {
	if text == "" || isSkip(text) {
		return []string{}
	}
	text = strings.ReplaceAll(strings.ToLower(text), " and ", ",")
	parts := strings.Split(text, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
