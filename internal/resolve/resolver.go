// Package resolve maps noisy spoken fragments onto the closed vocabularies
// the assistant understands: roster people, record categories, and length
// buckets.
//
// Person resolution is the interesting case. An exact alias hit (after
// case-folding) always wins, regardless of how the similarity threshold is
// configured. Otherwise every token of the fragment is scored against every
// alias of every entry with [phonetic.Score]; the entry with the highest
// score wins if and only if it reaches the threshold, and a tie between
// entries keeps the one declared first in the roster file. Raising the
// threshold can therefore only shrink the set of fragments that resolve,
// never grow it.
package resolve

import (
	"strings"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/roster"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/transcript/phonetic"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

const defaultThreshold = 0.65

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithThreshold sets the minimum [phonetic.Score] a fuzzy person match must
// reach. Exact alias matches ignore the threshold. Default: 0.65.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// Resolver resolves spoken fragments against the roster and the fixed
// category and length vocabularies. It is read-only after construction and
// safe for concurrent use.
type Resolver struct {
	roster    *roster.Roster
	threshold float64
}

// New returns a Resolver over the given roster.
func New(r *roster.Roster, opts ...Option) *Resolver {
	res := &Resolver{
		roster:    r,
		threshold: defaultThreshold,
	}
	for _, o := range opts {
		o(res)
	}
	return res
}

// Threshold returns the configured fuzzy-match threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Person resolves fragment to a roster entry.
//
// The fragment is tokenized on whitespace. If any token (or the whole
// fragment) is an exact case-insensitive alias of an entry, that entry wins
// outright. Otherwise the best fuzzy score across all token/alias pairs
// decides, subject to the threshold. The boolean reports success; on failure
// the entry is nil.
func (r *Resolver) Person(fragment string) (*roster.Entry, bool) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, false
	}

	tokens := strings.Fields(strings.ToLower(fragment))

	// Exact alias hits bypass the threshold entirely.
	if e := r.roster.ByExactAlias(fragment); e != nil {
		return e, true
	}
	for _, tok := range tokens {
		if e := r.roster.ByExactAlias(tok); e != nil {
			return e, true
		}
	}

	// Fuzzy pass: best score per entry; strict > keeps the first-declared
	// entry on ties.
	var (
		bestIdx   = -1
		bestScore float64
	)
	entries := r.roster.Entries()
	for i := range entries {
		score := r.entryScore(tokens, i)
		if score >= r.threshold && score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx < 0 {
		return nil, false
	}
	e := entries[bestIdx]
	return &e, true
}

// entryScore returns the highest score between any fragment token and any
// alias of entry i.
func (r *Resolver) entryScore(tokens []string, i int) float64 {
	var best float64
	for _, alias := range r.roster.AliasesOf(i) {
		for _, tok := range tokens {
			if s := phonetic.Score(tok, alias); s > best {
				best = s
			}
		}
	}
	return best
}

// categorySynonyms maps spoken words onto categories. Canonical category
// names resolve via [store.Category] directly.
var categorySynonyms = map[string]store.Category{
	"stories":   store.CategoryStory,
	"tale":      store.CategoryStory,
	"memories":  store.CategoryStory,
	"memory":    store.CategoryStory,
	"tip":       store.CategoryAdvice,
	"tips":      store.CategoryAdvice,
	"jokes":     store.CategoryJoke,
	"funny":     store.CategoryJoke,
	"lesson":    store.CategoryWisdom,
	"lessons":   store.CategoryWisdom,
	"birthdays": store.CategoryBirthday,
	"moments":   store.CategoryMoment,
	"songs":     store.CategorySong,
	"sing":      store.CategorySong,
}

// Category resolves fragment to a record category. Canonical names and known
// spoken synonyms are accepted; anything else fails.
func (r *Resolver) Category(fragment string) (store.Category, bool) {
	for _, tok := range strings.Fields(strings.ToLower(strings.TrimSpace(fragment))) {
		if c := store.Category(tok); c.IsValid() {
			return c, true
		}
		if c, ok := categorySynonyms[tok]; ok {
			return c, true
		}
	}
	return "", false
}

// lengthSynonyms maps spoken words onto length buckets.
var lengthSynonyms = map[string]store.LengthBucket{
	"quick":  store.LengthShort,
	"brief":  store.LengthShort,
	"little": store.LengthShort,
	"big":    store.LengthLong,
	"full":   store.LengthLong,
	"whole":  store.LengthLong,
}

// Length resolves fragment to a length bucket. Canonical bucket names and
// known spoken synonyms are accepted; anything else fails.
func (r *Resolver) Length(fragment string) (store.LengthBucket, bool) {
	for _, tok := range strings.Fields(strings.ToLower(strings.TrimSpace(fragment))) {
		if l := store.LengthBucket(tok); l.IsValid() {
			return l, true
		}
		if l, ok := lengthSynonyms[tok]; ok {
			return l, true
		}
	}
	return "", false
}
