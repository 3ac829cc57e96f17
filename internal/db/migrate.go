package db

import (
	"context"
	"database/sql"
)

type DB struct {
	*sql.DB
}

const identityMigration = `
CREATE TABLE IF NOT EXISTS identities (
    id uuid PRIMARY KEY,
    google_id text NOT NULL,
    email text NOT NULL DEFAULT '',
    name text NOT NULL DEFAULT '',
    access_token text NOT NULL DEFAULT '',
    refresh_token text NOT NULL DEFAULT '',
    token_expiry timestamptz,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT identities_google_id_unique
        UNIQUE (google_id)
);
`

// RunMigration creates the identity table. Idempotent; runs at every boot.
func RunMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, identityMigration)
	return err
}
