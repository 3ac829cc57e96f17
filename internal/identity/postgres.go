package identity

import (
	"context"
	"database/sql"
	"time"

	"calendar-auth-service/internal/db"
)

var _ Store = &PostgresStore{}

// PostgresStore is the database-backed identity store.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `
	id, google_id, email, name,
	access_token, refresh_token, token_expiry,
	created_at, updated_at
`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = $1
	`, id)
	return scanIdentity(row)
}

func (s *PostgresStore) GetByGoogleID(ctx context.Context, googleID string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE google_id = $1
	`, googleID)
	return scanIdentity(row)
}

func (s *PostgresStore) Create(ctx context.Context, ident *Identity) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO identities (id, google_id, email, name, access_token, refresh_token, token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`,
		ident.ID,
		ident.GoogleID,
		ident.Email,
		ident.Name,
		ident.AccessToken,
		ident.RefreshToken,
		nullTime(ident.TokenExpiry),
	).Scan(&ident.CreatedAt, &ident.UpdatedAt)
}

// UpdateTokens writes the latest token pair. Concurrent refreshes for one
// identity are last-writer-wins; there is no per-identity lock.
func (s *PostgresStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET access_token = $2,
		    refresh_token = $3,
		    token_expiry = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, id, accessToken, refreshToken, nullTime(expiry))
	return err
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	var ident Identity
	var expiry sql.NullTime

	err := row.Scan(
		&ident.ID,
		&ident.GoogleID,
		&ident.Email,
		&ident.Name,
		&ident.AccessToken,
		&ident.RefreshToken,
		&expiry,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if expiry.Valid {
		ident.TokenExpiry = expiry.Time
	}
	return &ident, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
