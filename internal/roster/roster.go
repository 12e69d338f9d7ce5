// Package roster holds the fixed set of family members the assistant knows
// about. The roster is loaded once at startup from a YAML file and is
// immutable afterwards; a missing or malformed roster file is a fatal
// startup error.
//
// Each entry carries a canonical name plus the spoken alias variations the
// recognizer tends to produce for it. Double Metaphone keys for every alias
// are precomputed at load time so entity resolution never re-encodes them.
package roster

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
)

// Entry is one family member.
type Entry struct {
	// Name is the canonical display name, unique within the roster
	// (case-insensitive).
	Name string `yaml:"name"`

	// Aliases are additional spoken variations that resolve to this entry.
	// The canonical name itself always counts as an alias.
	Aliases []string `yaml:"aliases"`
}

// rosterFile is the YAML document shape of a roster file.
type rosterFile struct {
	People []Entry `yaml:"people"`
}

// Roster is the immutable set of known family members. All methods are safe
// for concurrent use.
type Roster struct {
	entries []Entry

	// aliasKeys maps each lower-cased alias to its precomputed Double
	// Metaphone codes, keyed by entry index.
	aliasKeys []map[string][2]string
}

// New builds a Roster from entries, validating as [LoadFromReader] does.
func New(entries []Entry) (*Roster, error) {
	if err := validate(entries); err != nil {
		return nil, err
	}

	r := &Roster{
		entries:   make([]Entry, len(entries)),
		aliasKeys: make([]map[string][2]string, len(entries)),
	}
	copy(r.entries, entries)

	for i, e := range r.entries {
		keys := make(map[string][2]string, len(e.Aliases)+1)
		for _, alias := range append([]string{e.Name}, e.Aliases...) {
			lower := strings.ToLower(strings.TrimSpace(alias))
			p, s := phonetic.Keys(lower)
			keys[lower] = [2]string{p, s}
		}
		r.aliasKeys[i] = keys
	}
	return r, nil
}

// Load reads and parses a roster from the YAML file at path.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("roster: parse %q: %w", path, err)
	}
	return r, nil
}

// LoadFromReader parses roster YAML. Unknown fields are rejected so typos in
// the file surface immediately.
func LoadFromReader(rd io.Reader) (*Roster, error) {
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)

	var doc rosterFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return New(doc.People)
}

// validate checks every entry and reports all problems at once.
func validate(entries []Entry) error {
	var errs []error
	if len(entries) == 0 {
		errs = append(errs, errors.New("roster has no people"))
	}

	seen := make(map[string]string, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("entry %d: empty name", i))
			continue
		}
		lower := strings.ToLower(name)
		if prev, dup := seen[lower]; dup {
			errs = append(errs, fmt.Errorf("entry %d: name %q duplicates %q", i, e.Name, prev))
		}
		seen[lower] = e.Name

		for j, a := range e.Aliases {
			if strings.TrimSpace(a) == "" {
				errs = append(errs, fmt.Errorf("entry %d (%s): alias %d is empty", i, e.Name, j))
			}
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of roster entries.
func (r *Roster) Len() int { return len(r.entries) }

// Entries returns a copy of all entries in declaration order.
func (r *Roster) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names returns the canonical names in declaration order.
func (r *Roster) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Lookup returns the entry whose canonical name matches name
// (case-insensitive), or nil when no such entry exists.
func (r *Roster) Lookup(name string) *Entry {
	for i := range r.entries {
		if strings.EqualFold(r.entries[i].Name, name) {
			e := r.entries[i]
			return &e
		}
	}
	return nil
}

// ByExactAlias returns the entry owning the given alias or canonical name,
// compared case-insensitively, or nil when no entry claims it.
func (r *Roster) ByExactAlias(alias string) *Entry {
	lower := strings.ToLower(strings.TrimSpace(alias))
	if lower == "" {
		return nil
	}
	for i := range r.aliasKeys {
		if _, ok := r.aliasKeys[i][lower]; ok {
			e := r.entries[i]
			return &e
		}
	}
	return nil
}

// AliasesOf returns every spoken form of the entry at index i, canonical name
// first. The index addresses [Roster.Entries] order.
func (r *Roster) AliasesOf(i int) []string {
	e := r.entries[i]
	return append([]string{e.Name}, e.Aliases...)
}

// KeysOf returns the precomputed Double Metaphone codes for the given alias
// of entry i. The second return reports whether the alias is known.
func (r *Roster) KeysOf(i int, alias string) ([2]string, bool) {
	k, ok := r.aliasKeys[i][strings.ToLower(strings.TrimSpace(alias))]
	return k, ok
}
