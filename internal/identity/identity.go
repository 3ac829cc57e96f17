package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the durable record binding a Google subject to profile and
// token data. At most one row exists per Google subject id.
type Identity struct {
	ID           string
	GoogleID     string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string // empty means absent; absence forces re-login
	TokenExpiry  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store defines identity persistence. Lookups return (nil, nil) when the
// record does not exist.
type Store interface {
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByGoogleID(ctx context.Context, googleID string) (*Identity, error)
	Create(ctx context.Context, ident *Identity) error
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}

// UpsertParams carries the profile and token pair returned by a completed
// OAuth exchange.
type UpsertParams struct {
	GoogleID     string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// Upsert creates the identity on first login and updates tokens on every
// later one. The access token is always overwritten; the refresh token is
// overwritten only when the provider issued a new one, since Google omits
// it on repeat exchanges and nulling it would force a pointless re-login.
func Upsert(ctx context.Context, store Store, p UpsertParams) (*Identity, error) {
	existing, err := store.GetByGoogleID(ctx, p.GoogleID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		ident := &Identity{
			ID:           uuid.NewString(),
			GoogleID:     p.GoogleID,
			Email:        p.Email,
			Name:         p.Name,
			AccessToken:  p.AccessToken,
			RefreshToken: p.RefreshToken,
			TokenExpiry:  p.TokenExpiry,
		}
		if err := store.Create(ctx, ident); err != nil {
			return nil, err
		}
		return ident, nil
	}

	refresh := existing.RefreshToken
	if p.RefreshToken != "" {
		refresh = p.RefreshToken
	}

	if err := store.UpdateTokens(ctx, existing.ID, p.AccessToken, refresh, p.TokenExpiry); err != nil {
		return nil, err
	}

	existing.AccessToken = p.AccessToken
	existing.RefreshToken = refresh
	existing.TokenExpiry = p.TokenExpiry
	return existing, nil
}
