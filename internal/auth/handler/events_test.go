package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"calendar-auth-service/internal/google"
	"calendar-auth-service/internal/identity"
	"calendar-auth-service/internal/session"
)

// seedAuthenticated installs an identity plus a bound session and returns
// the session cookie.
func seedAuthenticated(t *testing.T, e *testEnv, ident identity.Identity) *http.Cookie {
	t.Helper()

	require.NoError(t, e.identities.Create(context.Background(), &ident))
	require.NoError(t, e.sessions.Create(context.Background(), session.Session{
		SessionID:  "sid-1",
		IdentityID: ident.ID,
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	rec := httptest.NewRecorder()
	session.SetCookie(rec, "sid-1", time.Now().Add(time.Hour), []byte(testSecret), session.CookieOptions{})
	return rec.Result().Cookies()[0]
}

func TestEvents_NoSessionCookie(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/auth/events")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"User not authenticated"}`, rec.Body.String())
	assert.Zero(t, e.google.eventsCalls)
}

func TestEvents_NoRefreshToken(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:          "identity-1",
		GoogleID:    "u1",
		AccessToken: "A1",
	})

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Re-login required"}`, rec.Body.String())
	assert.Zero(t, e.google.eventsCalls)
}

func TestEvents_ReturnsProviderEvents(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})

	var gotTokens google.Tokens
	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		gotTokens = tk
		return google.EventsResult{
			Events: []*calendar.Event{{Id: "ev1", Summary: "Standup"}},
		}, nil
	}

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Standup")
	assert.Equal(t, "A1", gotTokens.AccessToken)
	assert.Equal(t, "R1", gotTokens.RefreshToken)
}

func TestEvents_EmptyResultIsEmptyArray(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})

	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		return google.EventsResult{}, nil
	}

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestEvents_PersistsRefreshedTokens(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})

	expiry := time.Now().Add(time.Hour)
	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		return google.EventsResult{
			Refreshed: &google.Tokens{AccessToken: "A2", Expiry: expiry},
		}, nil
	}

	rec := e.get("/auth/events", ck)
	assert.Equal(t, http.StatusOK, rec.Code)

	ident := e.identities.identities["u1"]
	assert.Equal(t, "A2", ident.AccessToken)
	// refresh token untouched when the refresh response omitted it
	assert.Equal(t, "R1", ident.RefreshToken)
}

func TestEvents_PersistenceFailureStillReturnsData(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})
	e.identities.updateErr = errors.New("db down")

	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		return google.EventsResult{
			Events:    []*calendar.Event{{Id: "ev1"}},
			Refreshed: &google.Tokens{AccessToken: "A2"},
		}, nil
	}

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ev1")
}

func TestEvents_ReauthRequiredFromProvider(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})

	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		return google.EventsResult{}, google.ErrReauthRequired
	}

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Re-login required"}`, rec.Body.String())
}

func TestEvents_ProviderFailure(t *testing.T) {
	e := newTestEnv(t)
	ck := seedAuthenticated(t, e, identity.Identity{
		ID:           "identity-1",
		GoogleID:     "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
	})

	e.google.fetchEventsFunc = func(ctx context.Context, tk google.Tokens) (google.EventsResult, error) {
		return google.EventsResult{}, google.ErrCalendarFetch
	}

	rec := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch events")
}

func TestEvents_DanglingIdentityInvalidatesSession(t *testing.T) {
	e := newTestEnv(t)
	// session points at an identity that no longer exists
	require.NoError(t, e.sessions.Create(context.Background(), session.Session{
		SessionID:  "sid-1",
		IdentityID: "gone",
		ExpiresAt:  time.Now().Add(time.Hour),
	}))
	rec := httptest.NewRecorder()
	session.SetCookie(rec, "sid-1", time.Now().Add(time.Hour), []byte(testSecret), session.CookieOptions{})
	ck := rec.Result().Cookies()[0]

	resp := e.get("/auth/events", ck)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, e.sessions.sessions)
	assert.Zero(t, e.google.eventsCalls)
}
