// Package phonetic implements the similarity scoring used to recover roster
// names and category words from noisy speech transcripts.
//
// Scoring combines two signals:
//
//  1. Edit distance: a normalized Levenshtein ratio between the lower-cased
//     inputs, so "gumbo" and "beau" score on how much typing separates them.
//
//  2. Phonetic encoding: Double Metaphone codes are computed for both inputs.
//     When any code overlaps, the pair sounds alike and the score receives a
//     fixed bonus. This is what lets "cassie" reach "Cassie" from the
//     recognizer's "kasey" even when the spelling drifts.
//
// [Score] is pure and symmetric, always within [0, 1], and returns exactly 1
// for identical normalized inputs. [Matcher] builds candidate selection on
// top of Score: given a spoken fragment and a list of known names, it returns
// the best-scoring name at or above its threshold, also considering
// Jaro-Winkler similarity across token pairings so multi-word fragments
// ("aunt carrie") can still reach a single-word name.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultThreshold = 0.65

	// phoneticBonus is added to the edit-distance ratio when the Double
	// Metaphone code sets of the two inputs overlap.
	phoneticBonus = 0.20

	// minPairTokenLen excludes one- and two-letter tokens from pairwise
	// scoring. Jaro-Winkler over such short strings is noise: "a" reaches
	// 0.72 against "cassie".
	minPairTokenLen = 3
)

// Score returns a similarity score in [0, 1] for the pair (a, b).
//
// The score is symmetric, Score(x, x) == 1 for any x, and the function has no
// side effects. Inputs are compared case-insensitively with surrounding
// whitespace ignored. An empty input scores 0 against any non-empty input.
func Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := matchr.Levenshtein(a, b)
	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		score = 0
	}

	if codesOverlap(codesForTokens(strings.Fields(a)), codesForTokens(strings.Fields(b))) {
		score += phoneticBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Keys returns the primary and secondary Double Metaphone codes for word.
// Either code may be empty when the word is too short to encode.
func Keys(word string) (primary, secondary string) {
	return matchr.DoubleMetaphone(strings.ToLower(strings.TrimSpace(word)))
}

// SharesFragment reports whether a and b share a common subsequence of at
// least minLen characters, compared case-insensitively. Used to catch
// recognizer splits like "day cota" against "dakota".
func SharesFragment(a, b string, minLen int) bool {
	if minLen <= 0 {
		return true
	}
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return matchr.LongestCommonSubsequence(a, b) >= minLen
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum [Score] required for a candidate to be
// accepted by [Matcher.Match]. Default: 0.65.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// Matcher selects the best-scoring candidate for a spoken fragment.
// All methods are safe for concurrent use — the Matcher is read-only after
// construction.
type Matcher struct {
	threshold float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: defaultThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match finds the candidate most similar to fragment.
//
// fragment may be a single word or a space-separated phrase. Each candidate
// is scored with the best of [Score] on the full strings, Score on the
// space-stripped strings, and the highest pairwise token score (augmented by
// Jaro-Winkler on the same pairings). The best candidate is returned only
// when its score meets the threshold; ties keep the earliest candidate.
//
// When matched is false, best equals fragment unchanged and confidence is 0.
func (m *Matcher) Match(fragment string, candidates []string) (best string, confidence float64, matched bool) {
	if len(candidates) == 0 || strings.TrimSpace(fragment) == "" {
		return fragment, 0, false
	}

	fragLower := strings.ToLower(strings.TrimSpace(fragment))
	fragTokens := strings.Fields(fragLower)

	var (
		bestCandidate string
		bestScore     float64
	)

	for _, cand := range candidates {
		candLower := strings.ToLower(strings.TrimSpace(cand))
		if candLower == "" {
			continue
		}
		candTokens := strings.Fields(candLower)

		score := bestPairScore(fragTokens, candTokens, fragLower, candLower)
		if score >= m.threshold && score > bestScore {
			bestCandidate = cand
			bestScore = score
		}
	}

	if bestCandidate != "" {
		return bestCandidate, bestScore, true
	}
	return fragment, 0, false
}

// bestPairScore computes the highest similarity between the fragment and the
// candidate using three strategies:
//
//  1. Full-string comparison (e.g., "care e" vs "carrie").
//  2. Space-stripped comparison (e.g., "caree" vs "carrie").
//  3. Best pairwise token comparison — the maximum over any fragment token
//     and any candidate token, using both [Score] and Jaro-Winkler.
func bestPairScore(fragTokens, candTokens []string, fragFull, candFull string) float64 {
	score := Score(fragFull, candFull)

	if len(fragTokens) > 1 || len(candTokens) > 1 {
		concat1 := strings.Join(fragTokens, "")
		concat2 := strings.Join(candTokens, "")
		if s := Score(concat1, concat2); s > score {
			score = s
		}
	}

	for _, ft := range fragTokens {
		if len([]rune(ft)) < minPairTokenLen {
			continue
		}
		for _, ct := range candTokens {
			if len([]rune(ct)) < minPairTokenLen {
				continue
			}
			if s := Score(ft, ct); s > score {
				score = s
			}
			if s := matchr.JaroWinkler(ft, ct, false); s > score {
				score = s
			}
		}
	}

	return score
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	// Iterate over the smaller set for efficiency.
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
