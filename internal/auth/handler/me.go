package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calendar-auth-service/internal/middleware"
	"calendar-auth-service/internal/session"
)

// Me returns the bound identity's name and email. A session whose identity
// row has been deleted is invalidated here as a side effect.
func (h *Handler) Me(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":  ident.Name,
		"email": ident.Email,
	})
}

// invalidateSession drops the current session record and cookie when its
// identity reference turns out to be dangling.
func (h *Handler) invalidateSession(c *gin.Context) {
	if sessionID, ok := middleware.SessionIDFromContext(c.Request.Context()); ok {
		_ = h.sessions.Delete(c.Request.Context(), sessionID)
	}
	session.ClearCookie(c.Writer, h.cookieOptions())
}
