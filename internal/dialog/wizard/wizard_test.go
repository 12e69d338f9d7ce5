package wizard_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dialog/wizard"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/resolve"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/roster"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

func testResolver(t *testing.T) *resolve.Resolver {
	t.Helper()
	ros, err := roster.New([]roster.Entry{
		{Name: "Beau", Aliases: []string{"bo"}},
		{Name: "Cassie", Aliases: []string{"kasey"}},
	})
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}
	return resolve.New(ros)
}

func TestWizard_HappyPath(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "")

	if got := w.Start(); got.State != wizard.StateContinue {
		t.Fatalf("Start: state = %v, want continue", got.State)
	}
	if w.Slot() != wizard.SlotPerson {
		t.Fatalf("Slot() = %q, want person", w.Slot())
	}

	out := w.Answer("beau")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotCategory {
		t.Fatalf("after person: state=%v slot=%q, want continue/category", out.State, w.Slot())
	}

	out = w.Answer("a story")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotTitle {
		t.Fatalf("after category: state=%v slot=%q, want continue/title", out.State, w.Slot())
	}

	out = w.Answer("the fishing trip")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotTags {
		t.Fatalf("after title: state=%v slot=%q, want continue/tags", out.State, w.Slot())
	}

	out = w.Answer("summer and lake")
	if out.State != wizard.StateBeginCapture {
		t.Fatalf("after tags: state=%v, want begin-capture", out.State)
	}

	rec, done := w.Complete("/recordings/x.wav", 30*time.Second)
	if done.State != wizard.StateDone {
		t.Fatalf("Complete: state=%v, want done", done.State)
	}
	if rec.Person != "Beau" {
		t.Errorf("record.Person = %q, want Beau", rec.Person)
	}
	if rec.Category != store.CategoryStory {
		t.Errorf("record.Category = %q, want story", rec.Category)
	}
	if rec.Title != "the fishing trip" {
		t.Errorf("record.Title = %q, want the fishing trip", rec.Title)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "summer" || rec.Tags[1] != "lake" {
		t.Errorf("record.Tags = %v, want [summer lake]", rec.Tags)
	}
	if rec.Length != store.LengthMedium {
		t.Errorf("record.Length = %q, want medium for 30s", rec.Length)
	}
	if rec.AudioRef != "/recordings/x.wav" {
		t.Errorf("record.AudioRef = %q", rec.AudioRef)
	}
}

func TestWizard_DefaultsTitleAndEmptyTags(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "")
	w.Answer("cassie")
	w.Answer("advice")
	w.Answer("skip")
	out := w.Answer("none")
	if out.State != wizard.StateBeginCapture {
		t.Fatalf("state = %v, want begin-capture", out.State)
	}

	rec, _ := w.Complete("/r/y.wav", 10*time.Second)
	if rec.Title != "Cassie's advice" {
		t.Errorf("record.Title = %q, want defaulted %q", rec.Title, "Cassie's advice")
	}
	if len(rec.Tags) != 0 {
		t.Errorf("record.Tags = %v, want empty", rec.Tags)
	}
	if rec.Length != store.LengthShort {
		t.Errorf("record.Length = %q, want short for 10s", rec.Length)
	}
}

func TestWizard_CapturePromptMatchesRecorderCapability(t *testing.T) {
	t.Parallel()

	toCapture := func(w *wizard.Wizard) wizard.Outcome {
		w.Answer("beau")
		w.Answer("a story")
		w.Answer("skip")
		return w.Answer("none")
	}

	out := toCapture(wizard.New(testResolver(t), ""))
	if out.State != wizard.StateBeginCapture || !strings.Contains(out.Prompt, "Say stop") {
		t.Errorf("early-stop prompt = %q, want a say-stop instruction", out.Prompt)
	}

	// A recorder that always runs to its bound must not promise that "stop"
	// works.
	out = toCapture(wizard.New(testResolver(t), "", wizard.WithEarlyStop(false)))
	if out.State != wizard.StateBeginCapture || strings.Contains(out.Prompt, "Say stop") {
		t.Errorf("fixed-duration prompt = %q, must not mention stopping", out.Prompt)
	}
	if !strings.Contains(out.Prompt, "on my own") {
		t.Errorf("fixed-duration prompt = %q, want automatic-stop phrasing", out.Prompt)
	}
}

func TestWizard_SkipsPersonSlotWhenPreset(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "Beau")
	if w.Slot() != wizard.SlotCategory {
		t.Fatalf("Slot() = %q, want category when person preset", w.Slot())
	}
}

func TestWizard_RetryBudgetThenCancel(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "")

	// Two rejections re-prompt the same slot.
	for i := 0; i < 2; i++ {
		out := w.Answer("zelda")
		if out.State != wizard.StateContinue {
			t.Fatalf("rejection %d: state=%v, want continue", i+1, out.State)
		}
		if w.Slot() != wizard.SlotPerson {
			t.Fatalf("rejection %d: slot=%q, want person", i+1, w.Slot())
		}
	}

	// The third rejection exhausts the budget.
	out := w.Answer("zelda")
	if out.State != wizard.StateCancelled {
		t.Fatalf("third rejection: state=%v, want cancelled", out.State)
	}
}

func TestWizard_RetryBudgetResetsPerSlot(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "")

	w.Answer("zelda") // burn one person retry
	w.Answer("zelda") // burn another
	out := w.Answer("beau")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotCategory {
		t.Fatalf("valid answer after retries: state=%v slot=%q", out.State, w.Slot())
	}

	// The category slot gets a fresh budget.
	w.Answer("a recipe")
	w.Answer("a recipe")
	out = w.Answer("wisdom")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotTitle {
		t.Fatalf("category after fresh retries: state=%v slot=%q", out.State, w.Slot())
	}
}

func TestWizard_CategoryDefaultsToStoryOnSkip(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "Beau")
	out := w.Answer("skip")
	if out.State != wizard.StateContinue || w.Slot() != wizard.SlotTitle {
		t.Fatalf("after skip: state=%v slot=%q", out.State, w.Slot())
	}
	w.Answer("skip")
	w.Answer("none")
	rec, _ := w.Complete("/r/z.wav", 50*time.Second)
	if rec.Category != store.CategoryStory {
		t.Errorf("record.Category = %q, want defaulted story", rec.Category)
	}
	if rec.Length != store.LengthLong {
		t.Errorf("record.Length = %q, want long for 50s", rec.Length)
	}
}

func TestWizard_Cancel(t *testing.T) {
	t.Parallel()

	w := wizard.New(testResolver(t), "")
	out := w.Cancel()
	if out.State != wizard.StateCancelled {
		t.Fatalf("Cancel: state=%v, want cancelled", out.State)
	}
}
