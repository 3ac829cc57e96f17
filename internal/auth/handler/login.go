package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calendar-auth-service/internal/logger"
	"calendar-auth-service/internal/session"
)

// Login redirects the browser to Google's authorization endpoint. No state
// is mutated server-side; the CSRF state and PKCE verifier ride on
// short-lived cookies.
func (h *Handler) Login(c *gin.Context) {
	state := h.generateState(c)
	_, challenge := h.generatePKCE(c)

	authURL := h.google.AuthCodeURL(state, challenge)
	c.Redirect(http.StatusFound, authURL)
}

// Logout destroys the session record and clears the cookie. Idempotent:
// logging out an already-anonymous session succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID, err := session.IDFromRequest(c.Request, h.secret); err == nil {
		if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Error("failed to delete session", map[string]any{
				"error": err.Error(),
			})
		}
	}

	session.ClearCookie(c.Writer, h.cookieOptions())

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
