// Package mock provides an in-memory test double for [store.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent use
// via an internal [sync.Mutex].
//
// Typical usage:
//
//	s := mock.New()
//	s.Seed(store.Record{Person: "Beau", Category: store.CategoryStory})
//
//	// inject s into the system under test …
//
//	if got := s.CallCount("Query"); got != 1 {
//	    t.Errorf("expected 1 Query call, got %d", got)
//	}
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable in-memory implementation of [store.Store].
// The zero value is usable; [New] is provided for symmetry with the real
// backend.
type Store struct {
	mu     sync.Mutex
	calls  []Call
	recs   []store.Record
	nextID int

	// Err, when non-nil, is returned by every method. Use it to simulate an
	// unreachable backend.
	Err error

	// RandomIndex selects which matching record [Store.Random] returns,
	// modulo the match count. Deterministic so tests can predict the pick.
	RandomIndex int
}

// New returns an empty mock store.
func New() *Store { return &Store{} }

// Seed inserts records directly, bypassing call recording. Records without an
// ID are assigned one; records without a CreatedAt are stamped now.
func (m *Store) Seed(recs ...store.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		if r.ID == "" {
			m.nextID++
			r.ID = fmt.Sprintf("rec-%d", m.nextID)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		m.recs = append(m.recs, r)
	}
}

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Len returns the number of stored records.
func (m *Store) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

// Query implements [store.Store].
func (m *Store) Query(_ context.Context, filters store.Filters) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Query", Args: []any{filters}})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.matching(filters), nil
}

// Insert implements [store.Store].
func (m *Store) Insert(_ context.Context, rec store.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Insert", Args: []any{rec}})
	if m.Err != nil {
		return "", m.Err
	}
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.recs = append(m.recs, rec)
	return rec.ID, nil
}

// Delete implements [store.Store].
func (m *Store) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Delete", Args: []any{id}})
	if m.Err != nil {
		return false, m.Err
	}
	for i, r := range m.recs {
		if r.ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Random implements [store.Store]. The pick is RandomIndex modulo the match
// count rather than actually random, so tests stay deterministic.
func (m *Store) Random(_ context.Context, filters store.Filters) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Random", Args: []any{filters}})
	if m.Err != nil {
		return nil, m.Err
	}
	matches := m.matching(filters)
	if len(matches) == 0 {
		return nil, nil
	}
	r := matches[m.RandomIndex%len(matches)]
	return &r, nil
}

// matching returns a copy of all records matching filters, newest first.
// Caller must hold mu.
func (m *Store) matching(filters store.Filters) []store.Record {
	out := []store.Record{}
	for _, r := range m.recs {
		if filters.Person != "" && r.Person != filters.Person {
			continue
		}
		if filters.Category != "" && r.Category != filters.Category {
			continue
		}
		if filters.Length != "" && r.Length != filters.Length {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
