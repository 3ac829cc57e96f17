package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-auth-service/internal/identity"
	"calendar-auth-service/internal/logger"
	"calendar-auth-service/internal/session"
)

// Callback completes the OAuth flow: exchange code for tokens, fetch the
// profile, upsert the identity, bind a fresh session, and send the browser
// to the frontend dashboard. Nothing here retries; a failed exchange means
// the user restarts the flow.
func (h *Handler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"error": errParam,
			"desc":  c.Query("error_description"),
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication failed",
			"message": errParam,
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "authorization code missing",
		})
		return
	}

	if !h.validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}

	verifier := h.pkceVerifier(c)
	if verifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing pkce verifier"})
		return
	}

	tokens, err := h.google.Exchange(ctx, code, verifier)
	if err != nil {
		logger.Warn("code exchange failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication failed",
			"message": err.Error(),
		})
		return
	}

	profile, err := h.google.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		logger.Warn("profile fetch failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication failed",
			"message": err.Error(),
		})
		return
	}

	ident, err := identity.Upsert(ctx, h.identities, identity.UpsertParams{
		GoogleID:     profile.Subject,
		Email:        profile.Email,
		Name:         profile.Name,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenExpiry:  tokens.Expiry,
	})
	if err != nil {
		logger.Error("identity upsert failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist identity",
		})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)

	if err := h.sessions.Create(ctx, session.Session{
		SessionID:  sessionID,
		IdentityID: ident.ID,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, h.secret, h.cookieOptions())

	logger.Info("login succeeded", map[string]any{
		"identity_id": ident.ID,
		"email":       ident.Email,
	})

	c.Redirect(http.StatusFound, h.frontendOrigin+"/dashboard")
}
