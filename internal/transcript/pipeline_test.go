package transcript_test

import (
	"testing"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
)

func newTestPipeline(t *testing.T) *transcript.Pipeline {
	t.Helper()
	table, err := transcript.NewTable([]transcript.Rule{
		{Trigger: "get a gumbo", Replacement: "get from beau"},
		{Trigger: "cast me", Replacement: "cassie"},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	matcher := phonetic.New(phonetic.WithThreshold(0.65))
	return transcript.NewPipeline(
		transcript.WithTable(table),
		transcript.WithMatcher(matcher, []string{"Cassie", "Beau"}),
	)
}

func TestNormalize_TableThenPhonetic(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	res := p.Normalize("get a gumbo")

	if res.Original != "get a gumbo" {
		t.Errorf("Original = %q", res.Original)
	}
	if res.Corrected != "get from Beau" {
		t.Errorf("Corrected = %q, want %q", res.Corrected, "get from Beau")
	}
	if len(res.Corrections) == 0 {
		t.Fatal("expected at least the table correction")
	}
	first := res.Corrections[0]
	if first.Method != "table" || first.Original != "get a gumbo" || first.Confidence != 1 {
		t.Errorf("first correction = %+v", first)
	}
}

func TestNormalize_PhoneticAlignsNameVariant(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	res := p.Normalize("play a story from kasey")

	if res.Corrected != "play a story from Cassie" {
		t.Errorf("Corrected = %q", res.Corrected)
	}
	var phoneticCorrections int
	for _, c := range res.Corrections {
		if c.Method == "phonetic" {
			phoneticCorrections++
			if c.Corrected != "Cassie" {
				t.Errorf("phonetic correction = %+v", c)
			}
			if c.Confidence <= 0 || c.Confidence > 1 {
				t.Errorf("confidence = %v out of range", c.Confidence)
			}
		}
	}
	if phoneticCorrections != 1 {
		t.Errorf("phonetic corrections = %d, want 1", phoneticCorrections)
	}
}

func TestNormalize_NoMatchIsIdentity(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	const text = "what time is it"
	res := p.Normalize(text)

	if res.Corrected != text {
		t.Errorf("Corrected = %q, want input unchanged", res.Corrected)
	}
	if len(res.Corrections) != 0 {
		t.Errorf("Corrections = %v, want none", res.Corrections)
	}

	// Idempotence: normalizing the output again changes nothing.
	again := p.Normalize(res.Corrected)
	if again.Corrected != res.Corrected {
		t.Errorf("second pass changed text: %q -> %q", res.Corrected, again.Corrected)
	}
}

func TestNormalize_EmptyPipelinePassesThrough(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline()
	res := p.Normalize("anything at all")
	if res.Corrected != "anything at all" || len(res.Corrections) != 0 {
		t.Errorf("result = %+v", res)
	}
}
