package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"calendar-auth-service/internal/session"
)

// unexported, collision-proof context keys
type identityIDContextKeyType struct{}
type sessionIDContextKeyType struct{}

var (
	identityIDKey = identityIDContextKeyType{}
	sessionIDKey  = sessionIDContextKeyType{}
)

// IdentityIDFromContext extracts the authenticated identity ID from context.
func IdentityIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityIDKey).(string)
	return id, ok
}

// SessionIDFromContext extracts the current session ID from context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

type AuthMiddleware struct {
	Store  session.Store
	Secret []byte
}

func NewAuthMiddleware(store session.Store, secret []byte) *AuthMiddleware {
	return &AuthMiddleware{Store: store, Secret: secret}
}

// RequireAuth rejects requests without a live session. Auth decisions are
// session-based only; no provider call happens here.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Read and verify the signed session cookie
		sessionID, err := session.IDFromRequest(r, a.Secret)
		if err != nil {
			unauthenticated(w)
			return
		}

		// 2. Load session
		sess, err := a.Store.Get(r.Context(), sessionID)
		if err != nil || sess == nil {
			unauthenticated(w)
			return
		}

		// 3. Enforce session expiry even if the store TTL lags
		if time.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(r.Context(), sessionID)
			unauthenticated(w)
			return
		}

		// 4. Attach session and identity ids to context
		ctx := context.WithValue(r.Context(), identityIDKey, sess.IdentityID)
		ctx = context.WithValue(ctx, sessionIDKey, sess.SessionID)

		// 5. Continue request
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "User not authenticated",
	})
}
