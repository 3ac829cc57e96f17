package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"calendar-auth-service/internal/google"
	"calendar-auth-service/internal/identity"
	"calendar-auth-service/internal/middleware"
	"calendar-auth-service/internal/session"
)

const testSecret = "handler-test-secret"

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type mockGoogle struct {
	exchangeFunc     func(ctx context.Context, code, verifier string) (google.Tokens, error)
	fetchProfileFunc func(ctx context.Context, accessToken string) (google.Profile, error)
	fetchEventsFunc  func(ctx context.Context, t google.Tokens) (google.EventsResult, error)

	eventsCalls int
}

func (m *mockGoogle) AuthCodeURL(state, codeChallenge string) string {
	return "https://accounts.google.example/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (m *mockGoogle) Exchange(ctx context.Context, code, verifier string) (google.Tokens, error) {
	return m.exchangeFunc(ctx, code, verifier)
}

func (m *mockGoogle) FetchProfile(ctx context.Context, accessToken string) (google.Profile, error) {
	return m.fetchProfileFunc(ctx, accessToken)
}

func (m *mockGoogle) FetchEvents(ctx context.Context, t google.Tokens) (google.EventsResult, error) {
	m.eventsCalls++
	return m.fetchEventsFunc(ctx, t)
}

type fakeIdentityStore struct {
	identities map[string]*identity.Identity // keyed by google id
	updateErr  error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{identities: make(map[string]*identity.Identity)}
}

func (f *fakeIdentityStore) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	for _, ident := range f.identities {
		if ident.ID == id {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentityStore) GetByGoogleID(ctx context.Context, googleID string) (*identity.Identity, error) {
	ident, ok := f.identities[googleID]
	if !ok {
		return nil, nil
	}
	cp := *ident
	return &cp, nil
}

func (f *fakeIdentityStore) Create(ctx context.Context, ident *identity.Identity) error {
	cp := *ident
	f.identities[ident.GoogleID] = &cp
	return nil
}

func (f *fakeIdentityStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, ident := range f.identities {
		if ident.ID == id {
			ident.AccessToken = accessToken
			ident.RefreshToken = refreshToken
			ident.TokenExpiry = expiry
			return nil
		}
	}
	return errors.New("identity not found")
}

type fakeSessionStore struct {
	sessions map[string]session.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]session.Session)}
}

func (f *fakeSessionStore) Create(ctx context.Context, s session.Session) error {
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type testEnv struct {
	google     *mockGoogle
	identities *fakeIdentityStore
	sessions   *fakeSessionStore
	router     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &testEnv{
		google:     &mockGoogle{},
		identities: newFakeIdentityStore(),
		sessions:   newFakeSessionStore(),
	}

	h := NewHandler(e.google, e.identities, e.sessions, Config{
		SessionSecret:  testSecret,
		FrontendOrigin: "http://localhost:3000",
		SameSite:       http.SameSiteLaxMode,
	})

	requireAuth := middleware.GinRequireAuth(
		middleware.NewAuthMiddleware(e.sessions, []byte(testSecret)),
	)

	e.router = gin.New()
	h.RegisterRoutes(e.router, requireAuth)
	return e
}

// completeLogin drives the full login redirect and callback, returning the
// callback response.
func (e *testEnv) completeLogin(t *testing.T, code string) *httptest.ResponseRecorder {
	t.Helper()

	loginRec := httptest.NewRecorder()
	e.router.ServeHTTP(loginRec, httptest.NewRequest("GET", "/auth/login", nil))
	require.Equal(t, http.StatusFound, loginRec.Code)

	authURL, err := url.Parse(loginRec.Header().Get("Location"))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	cbReq := httptest.NewRequest("GET", "/auth/callback?code="+url.QueryEscape(code)+"&state="+url.QueryEscape(state), nil)
	for _, ck := range loginRec.Result().Cookies() {
		cbReq.AddCookie(ck)
	}

	cbRec := httptest.NewRecorder()
	e.router.ServeHTTP(cbRec, cbReq)
	return cbRec
}

// sessionCookie pulls the session cookie out of a callback response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName && ck.Value != "" {
			return ck
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
