package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"accounts-app/internal/api/pages"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	log      *slog.Logger
	repo     users.Repository
	sessions *session.Store
	plan     string
	now      func() time.Time
}

func New(log *slog.Logger, repo users.Repository, sessions *session.Store, plan string) *Handler {
	return &Handler{log: log, repo: repo, sessions: sessions, plan: plan, now: time.Now}
}

// Profile is routed behind RequireLogin.
func (h *Handler) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pages.Render(c, h.sessions, http.StatusOK, "profile.html", gin.H{
		"Title":  "Profile",
		"User":   user,
		"Active": user.Profile.HasActiveSubscription(h.now()),
	})
}

// GetCurrentUser serves GET /api/me for a bearer token holder.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.repo.FindByID(c.Request.Context(), userID)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !user.IsActive) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.Error("failed to load user", slog.String("op", "api.users.GetCurrentUser"), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load user"})
		return
	}

	c.JSON(http.StatusOK, BuildMeResponse(h.now(), *user, h.plan))
}
