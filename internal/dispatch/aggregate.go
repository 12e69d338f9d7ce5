package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Summary is the aggregate view of a record set spoken by the list command.
type Summary struct {
	// Total is the number of records.
	Total int

	// DistinctPeople is how many different people have at least one record.
	DistinctPeople int

	// PerCategory tallies records per category. The values always sum to
	// Total.
	PerCategory map[store.Category]int

	// PerPerson tallies records per canonical person name. The values
	// always sum to Total.
	PerPerson map[string]int
}

// Aggregate reduces records to a [Summary]. It is pure: no ordering
// assumptions, no mutation of the input.
func Aggregate(records []store.Record) Summary {
	s := Summary{
		PerCategory: make(map[store.Category]int),
		PerPerson:   make(map[string]int),
	}
	for _, r := range records {
		s.Total++
		s.PerCategory[r.Category]++
		s.PerPerson[r.Person]++
	}
	s.DistinctPeople = len(s.PerPerson)
	return s
}

// FormatSummary renders a Summary as speech. The per-category breakdown
// follows the fixed category order; the per-person breakdown is alphabetical
// so repeated invocations speak the same sentence.
func FormatSummary(s Summary) string {
	if s.Total == 0 {
		return "I don't have any stories yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have %s from %s.",
		countNoun(s.Total, "recording", "recordings"),
		countNoun(s.DistinctPeople, "person", "people"),
	)

	var catParts []string
	for _, c := range store.AllCategories {
		if n := s.PerCategory[c]; n > 0 {
			catParts = append(catParts, fmt.Sprintf("%d %s", n, string(c)))
		}
	}
	if len(catParts) > 0 {
		b.WriteString(" That is " + joinSpoken(catParts) + ".")
	}

	people := make([]string, 0, len(s.PerPerson))
	for p := range s.PerPerson {
		people = append(people, p)
	}
	sort.Strings(people)
	var peopleParts []string
	for _, p := range people {
		peopleParts = append(peopleParts, fmt.Sprintf("%d from %s", s.PerPerson[p], p))
	}
	if len(peopleParts) > 0 {
		b.WriteString(" That includes " + joinSpoken(peopleParts) + ".")
	}

	return b.String()
}

// countNoun renders "1 person" / "3 people".
func countNoun(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// joinSpoken joins parts as natural speech: "a", "a and b", "a, b, and c".
func joinSpoken(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
