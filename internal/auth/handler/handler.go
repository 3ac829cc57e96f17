package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-auth-service/internal/google"
	"calendar-auth-service/internal/identity"
	"calendar-auth-service/internal/session"
)

const sessionTTL = 24 * time.Hour

// GoogleClient is the slice of the Google client the handlers consume.
// Exchange and fetch calls are stateless; tokens travel as arguments and
// results, never on a shared client.
type GoogleClient interface {
	AuthCodeURL(state string, codeChallenge string) string
	Exchange(ctx context.Context, code string, codeVerifier string) (google.Tokens, error)
	FetchProfile(ctx context.Context, accessToken string) (google.Profile, error)
	FetchEvents(ctx context.Context, t google.Tokens) (google.EventsResult, error)
}

// Config carries the handler's cookie and redirect settings.
type Config struct {
	SessionSecret  string
	FrontendOrigin string
	SecureCookies  bool
	SameSite       http.SameSite
}

type Handler struct {
	google     GoogleClient
	identities identity.Store
	sessions   session.Store

	secret         []byte
	frontendOrigin string
	secureCookies  bool
	sameSite       http.SameSite
}

func NewHandler(
	googleClient GoogleClient,
	identities identity.Store,
	sessions session.Store,
	cfg Config,
) *Handler {
	return &Handler{
		google:         googleClient,
		identities:     identities,
		sessions:       sessions,
		secret:         []byte(cfg.SessionSecret),
		frontendOrigin: cfg.FrontendOrigin,
		secureCookies:  cfg.SecureCookies,
		sameSite:       cfg.SameSite,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	auth := r.Group("/auth")
	auth.GET("/login", h.Login)
	auth.GET("/callback", h.Callback)
	auth.POST("/logout", h.Logout)

	authed := auth.Group("")
	authed.Use(requireAuth)
	authed.GET("/me", h.Me)
	authed.GET("/events", h.Events)
}

func (h *Handler) cookieOptions() session.CookieOptions {
	return session.CookieOptions{
		Secure:   h.secureCookies,
		SameSite: h.sameSite,
	}
}
