// Package postgres provides the PostgreSQL-backed implementation of
// [store.Store] using a single [pgxpool.Pool].
//
// [NewStore] pings the database and runs [Migrate] so the records table is
// guaranteed to exist before the first query. The schema is idempotent and
// safe to re-run on every application start.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed record store. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping verifies the database connection is alive. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool. Typically
// called via defer or a shutdown closer.
func (s *Store) Close() {
	s.pool.Close()
}

const recordColumns = "id, person, category, length, title, tags, audio_ref, duration_ns, created_at"

// Query implements [store.Store]. Results are ordered newest first.
func (s *Store) Query(ctx context.Context, filters store.Filters) ([]store.Record, error) {
	q, args := buildSelect(filters, "ORDER BY created_at DESC")

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query: %w", err)
	}
	return collectRecords(rows)
}

// Insert implements [store.Store]. The database assigns the ID and creation
// timestamp.
func (s *Store) Insert(ctx context.Context, rec store.Record) (string, error) {
	const q = `
		INSERT INTO records (person, category, length, title, tags, audio_ref, duration_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id string
	err := s.pool.QueryRow(ctx, q,
		rec.Person,
		string(rec.Category),
		string(rec.Length),
		rec.Title,
		rec.Tags,
		rec.AudioRef,
		rec.Duration.Nanoseconds(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres store: insert: %w", err)
	}
	return id, nil
}

// Delete implements [store.Store].
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres store: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Random implements [store.Store]. It returns (nil, nil) when no record
// matches filters.
func (s *Store) Random(ctx context.Context, filters store.Filters) (*store.Record, error) {
	q, args := buildSelect(filters, "ORDER BY random() LIMIT 1")

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: random: %w", err)
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// buildSelect assembles a parameterized SELECT over the records table from
// the non-zero fields of filters, plus a trailing clause (ordering / limit).
func buildSelect(filters store.Filters, tail string) (string, []any) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"TRUE"}
	if filters.Person != "" {
		conditions = append(conditions, "person = "+next(filters.Person))
	}
	if filters.Category != "" {
		conditions = append(conditions, "category = "+next(string(filters.Category)))
	}
	if filters.Length != "" {
		conditions = append(conditions, "length = "+next(string(filters.Length)))
	}

	q := "SELECT " + recordColumns + "\n" +
		"FROM   records\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		tail

	return q, args
}

// collectRecords scans pgx rows into a slice of Record values.
func collectRecords(rows pgx.Rows) ([]store.Record, error) {
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Record, error) {
		var (
			r          store.Record
			category   string
			length     string
			durationNS int64
		)
		if err := row.Scan(
			&r.ID,
			&r.Person,
			&category,
			&length,
			&r.Title,
			&r.Tags,
			&r.AudioRef,
			&durationNS,
			&r.CreatedAt,
		); err != nil {
			return store.Record{}, err
		}
		r.Category = store.Category(category)
		r.Length = store.LengthBucket(length)
		r.Duration = time.Duration(durationNS)
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return recs, nil
}
