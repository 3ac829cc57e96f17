package session

import (
	"context"
	"time"
)

// Session maps an opaque handle to a stored identity.
// It is a weak reference: the identity is re-resolved on every request.
type Session struct {
	SessionID  string    `json:"session_id"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store defines how sessions are stored and retrieved.
// Implementations must be durable so sessions survive restarts.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
