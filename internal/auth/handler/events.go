package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/calendar/v3"

	"calendar-auth-service/internal/google"
	"calendar-auth-service/internal/logger"
	"calendar-auth-service/internal/middleware"
)

// Events fetches the user's calendar window with the stored tokens. An
// identity without a refresh token gets a re-login response instead of a
// short-lived-token-only attempt. Tokens minted during the fetch are
// persisted before the response; a failed write is logged but does not
// fail the response, since the user already has their data.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()

	identityID, ok := middleware.IdentityIDFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ident, err := h.identities.GetByID(ctx, identityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if ident == nil {
		h.invalidateSession(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if ident.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Re-login required"})
		return
	}

	result, err := h.google.FetchEvents(ctx, google.Tokens{
		AccessToken:  ident.AccessToken,
		RefreshToken: ident.RefreshToken,
		Expiry:       ident.TokenExpiry,
	})
	if err != nil {
		if errors.Is(err, google.ErrReauthRequired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Re-login required"})
			return
		}
		logger.Error("calendar fetch failed", map[string]any{
			"identity_id": ident.ID,
			"error":       err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch events",
			"message": err.Error(),
		})
		return
	}

	if result.Refreshed != nil {
		refresh := ident.RefreshToken
		if result.Refreshed.RefreshToken != "" {
			refresh = result.Refreshed.RefreshToken
		}
		err := h.identities.UpdateTokens(ctx, ident.ID, result.Refreshed.AccessToken, refresh, result.Refreshed.Expiry)
		if err != nil {
			// the next request will redundantly re-refresh
			logger.Error("failed to persist refreshed tokens", map[string]any{
				"identity_id": ident.ID,
				"error":       err.Error(),
			})
		}
	}

	events := result.Events
	if events == nil {
		events = make([]*calendar.Event, 0)
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
