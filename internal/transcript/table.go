// Package transcript normalizes raw speech-recognizer output before command
// classification.
//
// Normalization happens in two stages, both in-process and deterministic:
//
//  1. Correction table ([Table]) — an operator-maintained list of known
//     recognizer mistakes ("get a gumbo" heard for "get from beau") applied
//     as literal substring rewrites.
//  2. Phonetic alignment ([Pipeline]) — token windows of the corrected text
//     are matched against the roster names so that sound-alike renderings
//     collapse onto canonical spellings.
package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Rule is a single correction table entry: when Trigger is heard anywhere in
// a transcript, it is replaced by Replacement.
type Rule struct {
	// Trigger is the literal phrase to look for, matched case-insensitively.
	Trigger string `yaml:"trigger"`

	// Replacement is substituted for the matched span verbatim.
	Replacement string `yaml:"replacement"`
}

// Table is an ordered list of correction rules. It is immutable after load
// and safe for concurrent use.
type Table struct {
	rules []Rule
}

// tableFile is the YAML document shape of a correction table file.
type tableFile struct {
	Corrections []Rule `yaml:"corrections"`
}

// NewTable builds a Table from rules, validating as [LoadTableFromReader]
// does.
func NewTable(rules []Rule) (*Table, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Table{rules: out}, nil
}

// LoadTable reads and parses a correction table from the YAML file at path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open correction table %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadTableFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("transcript: parse correction table %q: %w", path, err)
	}
	return t, nil
}

// LoadTableFromReader parses a correction table from YAML. Unknown fields are
// rejected so typos in the file surface immediately.
func LoadTableFromReader(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc tableFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	return NewTable(doc.Corrections)
}

// validateRules checks every rule and reports all problems at once.
func validateRules(rules []Rule) error {
	var errs []error
	for i, r := range rules {
		if strings.TrimSpace(r.Trigger) == "" {
			errs = append(errs, fmt.Errorf("rule %d: empty trigger", i))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of rules in the table.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the rule list in declaration order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Apply rewrites text using the first rule whose trigger occurs in it.
//
// Rules are tried in declaration order; the earliest rule with a
// case-insensitive substring hit wins. Only the first occurrence of that
// trigger is replaced, the replacement text is inserted verbatim, and the
// surrounding text is preserved byte for byte. The rewritten text is NOT
// re-scanned, so a replacement can never trigger further rules. When no rule
// matches, text is returned unchanged.
func (t *Table) Apply(text string) (string, *Rule) {
	for i := range t.rules {
		r := &t.rules[i]
		start, end := foldIndex(text, r.Trigger)
		if start < 0 {
			continue
		}
		return text[:start] + r.Replacement + text[end:], r
	}
	return text, nil
}

// foldIndex locates the first case-insensitive occurrence of substr in s and
// returns its byte bounds in s, or (-1, -1). Offsets are computed on s itself
// rather than a lowercased copy: ToLower can change the byte length of runes
// such as U+0130, which would misalign a copied index.
func foldIndex(s, substr string) (start, end int) {
	for i := range s {
		n := foldPrefixLen(s[i:], substr)
		if n >= 0 {
			return i, i + n
		}
	}
	return -1, -1
}

// foldPrefixLen reports how many bytes of s a case-insensitive match of substr
// consumes, or -1 when s does not start with substr.
func foldPrefixLen(s, substr string) int {
	var n int
	for _, want := range substr {
		got, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(got) != unicode.ToLower(want) {
			return -1
		}
		n += size
	}
	return n
}
