// Package store defines the persistent record collection that Muninn captures
// family memories into, along with the [Store] interface that storage backends
// implement.
//
// Two implementations ship with the application:
//
//   - postgres: a PostgreSQL-backed store using pgx (see the postgres subpackage)
//   - mock: an in-memory test double (see the mock subpackage)
//
// Every implementation must be safe for concurrent use.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned (possibly wrapped) when the backing storage
// cannot be reached. Callers treat it as a recoverable condition: the
// assistant apologises out loud instead of crashing.
var ErrUnavailable = errors.New("store: unavailable")

// Store is the persistence boundary for captured memories.
//
// Query-style methods never signal "no results" through an error: an empty
// result set is an empty slice (or a nil *Record from [Store.Random]) with a
// nil error.
type Store interface {
	// Query returns all records matching filters, newest first.
	// Returns an empty (non-nil) slice when nothing matches.
	Query(ctx context.Context, filters Filters) ([]Record, error)

	// Insert stores a new record and returns its assigned ID.
	// The record's ID field is ignored on input.
	Insert(ctx context.Context, rec Record) (string, error)

	// Delete removes the record with the given ID. It reports whether a
	// record was actually deleted; deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) (bool, error)

	// Random returns one uniformly chosen record matching filters, or
	// (nil, nil) when nothing matches.
	Random(ctx context.Context, filters Filters) (*Record, error)
}
