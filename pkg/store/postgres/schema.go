package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRecords = `
CREATE TABLE IF NOT EXISTS records (
    id           TEXT         PRIMARY KEY DEFAULT gen_random_uuid()::text,
    person       TEXT         NOT NULL,
    category     TEXT         NOT NULL,
    length       TEXT         NOT NULL,
    title        TEXT         NOT NULL DEFAULT '',
    tags         TEXT[]       NOT NULL DEFAULT '{}',
    audio_ref    TEXT         NOT NULL,
    duration_ns  BIGINT       NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_person
    ON records (person);

CREATE INDEX IF NOT EXISTS idx_records_category
    ON records (category);

CREATE INDEX IF NOT EXISTS idx_records_created_at
    ON records (created_at);
`

// Migrate creates or ensures the records table and its indexes exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlRecords); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
