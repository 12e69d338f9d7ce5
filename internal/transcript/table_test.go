package transcript_test

import (
	"strings"
	"testing"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
)

func mustTable(t *testing.T, rules []transcript.Rule) *transcript.Table {
	t.Helper()
	tbl, err := transcript.NewTable(rules)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestTable_Apply_FirstRuleWins(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "get a gumbo", Replacement: "get from beau"},
		{Trigger: "gumbo", Replacement: "jumbo"},
	})

	got, rule := tbl.Apply("please get a gumbo story")
	if rule == nil {
		t.Fatal("Apply: rule=nil, want first rule")
	}
	if rule.Trigger != "get a gumbo" {
		t.Errorf("Apply: fired rule %q, want %q", rule.Trigger, "get a gumbo")
	}
	if got != "please get from beau story" {
		t.Errorf("Apply = %q, want %q", got, "please get from beau story")
	}
}

func TestTable_Apply_CaseInsensitiveMatchVerbatimReplacement(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "Get A Gumbo", Replacement: "get from Beau"},
	})

	got, rule := tbl.Apply("GET A GUMBO now")
	if rule == nil {
		t.Fatal("Apply: rule=nil, want match")
	}
	// The replacement is inserted exactly as written in the rule, and text
	// outside the matched span is untouched.
	if got != "get from Beau now" {
		t.Errorf("Apply = %q, want %q", got, "get from Beau now")
	}
}

func TestTable_Apply_NonASCIIBeforeTrigger(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "get a gumbo", Replacement: "get from beau"},
	})

	// "İ" (U+0130) grows when lowercased, so the matched span must be located
	// on the original text, not a lowercased copy.
	got, rule := tbl.Apply("İstanbul get a gumbo")
	if rule == nil {
		t.Fatal("Apply: rule=nil, want match")
	}
	if got != "İstanbul get from beau" {
		t.Errorf("Apply = %q, want %q", got, "İstanbul get from beau")
	}
}

func TestTable_Apply_OnlyFirstOccurrence(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "gumbo", Replacement: "beau"},
	})

	got, _ := tbl.Apply("gumbo and gumbo")
	if got != "beau and gumbo" {
		t.Errorf("Apply = %q, want %q", got, "beau and gumbo")
	}
}

func TestTable_Apply_NoRescan(t *testing.T) {
	t.Parallel()

	// The replacement contains a later rule's trigger; it must not fire.
	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "alpha", Replacement: "bravo"},
		{Trigger: "bravo", Replacement: "charlie"},
	})

	got, _ := tbl.Apply("say alpha")
	if got != "say bravo" {
		t.Errorf("Apply = %q, want %q (replacement must not be re-scanned)", got, "say bravo")
	}
}

func TestTable_Apply_NoMatchReturnsInputUnchanged(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "get a gumbo", Replacement: "get from beau"},
	})

	const in = "tell me a joke"
	got, rule := tbl.Apply(in)
	if rule != nil {
		t.Fatalf("Apply: fired rule %q, want none", rule.Trigger)
	}
	if got != in {
		t.Errorf("Apply = %q, want input unchanged", got)
	}

	// Idempotence: applying again yields the same text.
	again, _ := tbl.Apply(got)
	if again != got {
		t.Errorf("Apply twice = %q, want %q", again, got)
	}
}

func TestLoadTableFromReader(t *testing.T) {
	t.Parallel()

	const doc = `
corrections:
  - trigger: "get a gumbo"
    replacement: "get from beau"
  - trigger: "care e"
    replacement: "carrie"
`
	tbl, err := transcript.LoadTableFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadTableFromReader: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if got := tbl.Rules()[0].Trigger; got != "get a gumbo" {
		t.Errorf("first trigger = %q, want %q", got, "get a gumbo")
	}
}

func TestLoadTableFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	const doc = `
corrections:
  - trigger: "x"
    replacment: "y"
`
	if _, err := transcript.LoadTableFromReader(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadTableFromReader: want error for unknown field, got nil")
	}
}

func TestLoadTableFromReader_EmptyTrigger(t *testing.T) {
	t.Parallel()

	const doc = `
corrections:
  - trigger: ""
    replacement: "y"
`
	if _, err := transcript.LoadTableFromReader(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadTableFromReader: want error for empty trigger, got nil")
	}
}

func TestPipeline_TableThenPhonetic(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, []transcript.Rule{
		{Trigger: "get a gumbo", Replacement: "get from beau"},
	})
	p := transcript.NewPipeline(
		transcript.WithTable(tbl),
		transcript.WithMatcher(phonetic.New(phonetic.WithThreshold(0.8)), []string{"Beau", "Cassie"}),
	)

	res := p.Normalize("get a gumbo")
	if res.Corrected != "get from Beau" {
		t.Errorf("Normalize = %q, want %q", res.Corrected, "get from Beau")
	}
	if len(res.Corrections) == 0 {
		t.Fatal("Normalize: no corrections recorded")
	}
	if res.Corrections[0].Method != "table" {
		t.Errorf("first correction method = %q, want table", res.Corrections[0].Method)
	}
}

func TestPipeline_NoStagesPassThrough(t *testing.T) {
	t.Parallel()

	p := transcript.NewPipeline()
	res := p.Normalize("tell me a joke")
	if res.Corrected != "tell me a joke" {
		t.Errorf("Normalize = %q, want input unchanged", res.Corrected)
	}
	if len(res.Corrections) != 0 {
		t.Errorf("Normalize: %d corrections, want 0", len(res.Corrections))
	}
}
