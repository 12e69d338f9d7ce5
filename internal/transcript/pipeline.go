package transcript

import (
	"strings"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
)

// Correction records a single rewrite applied during normalization.
type Correction struct {
	// Original is the span of recognizer output that was rewritten.
	Original string

	// Corrected is the text it was rewritten to.
	Corrected string

	// Confidence is the similarity score that justified the rewrite.
	// Table rewrites are unconditional and carry 1.
	Confidence float64

	// Method identifies the stage that produced the rewrite:
	// "table" or "phonetic".
	Method string
}

// Result is the outcome of normalizing one transcript.
type Result struct {
	// Original is the raw recognizer output.
	Original string

	// Corrected is the normalized text handed to command classification.
	Corrected string

	// Corrections lists every rewrite that was applied, in order.
	Corrections []Correction
}

// PipelineOption is a functional option for configuring a [Pipeline].
type PipelineOption func(*Pipeline)

// WithTable attaches a correction [Table] as the first stage. When nil (the
// default), the table stage is skipped entirely.
func WithTable(t *Table) PipelineOption {
	return func(p *Pipeline) {
		p.table = t
	}
}

// WithMatcher attaches a [phonetic.Matcher] as the second stage together with
// the candidate names it aligns token windows against. When either is empty,
// the phonetic stage is skipped entirely.
func WithMatcher(m *phonetic.Matcher, candidates []string) PipelineOption {
	return func(p *Pipeline) {
		p.matcher = m
		p.candidates = candidates
	}
}

// Pipeline is the two-stage transcript normalizer. Stages are optional and
// applied in order:
//
//  1. [Table] — literal correction of known recognizer mistakes.
//  2. [phonetic.Matcher] — alignment of token windows onto candidate names.
//
// Pipeline is safe for concurrent use — it is read-only after construction.
type Pipeline struct {
	table      *Table
	matcher    *phonetic.Matcher
	candidates []string
}

// NewPipeline constructs a [Pipeline] with the supplied options. By default
// both stages are disabled; use [WithTable] and [WithMatcher] to activate
// them.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Normalize applies the configured stages to text and returns the [Result].
func (p *Pipeline) Normalize(text string) Result {
	result := Result{
		Original:    text,
		Corrected:   text,
		Corrections: []Correction{},
	}

	if p.table != nil {
		rewritten, rule := p.table.Apply(result.Corrected)
		if rule != nil {
			result.Corrections = append(result.Corrections, Correction{
				Original:   rule.Trigger,
				Corrected:  rule.Replacement,
				Confidence: 1,
				Method:     "table",
			})
			result.Corrected = rewritten
		}
	}

	if p.matcher != nil && len(p.candidates) > 0 {
		aligned, corrections := p.alignTokens(result.Corrected)
		result.Corrected = aligned
		result.Corrections = append(result.Corrections, corrections...)
	}

	return result
}

// alignTokens runs the phonetic alignment stage over text.
//
// At each token position, n-gram windows from the widest candidate width down
// to 1 are tested against the candidate names. The longest matching window
// wins so that multi-word names take precedence over partial single-word
// matches. Exact (case-insensitive) token hits are emitted as the canonical
// candidate spelling without a correction entry.
func (p *Pipeline) alignTokens(text string) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	maxWidth := maxWordCount(p.candidates)

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := maxWidth
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			candidate, conf, ok := p.matcher.Match(window, p.candidates)
			if !ok {
				continue
			}

			output = append(output, strings.Fields(candidate)...)
			if !strings.EqualFold(window, candidate) {
				corrections = append(corrections, Correction{
					Original:   window,
					Corrected:  candidate,
					Confidence: conf,
					Method:     "phonetic",
				})
			}
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " "), corrections
}

// maxWordCount returns the maximum number of whitespace-separated words in
// any candidate string. Returns 1 when candidates is empty.
func maxWordCount(candidates []string) int {
	max := 1
	for _, c := range candidates {
		n := len(strings.Fields(c))
		if n > max {
			max = n
		}
	}
	return max
}
