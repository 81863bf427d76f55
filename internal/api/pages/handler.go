package pages

import (
	"net/http"

	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo     users.Repository
	sessions *session.Store
}

func New(repo users.Repository, sessions *session.Store) *Handler {
	return &Handler{repo: repo, sessions: sessions}
}

// Index is public; a signed-in user only changes the navigation.
func (h *Handler) Index(c *gin.Context) {
	data := gin.H{"Title": "Home"}
	if id, ok := h.sessions.UserID(c); ok {
		if user, err := h.repo.FindByID(c.Request.Context(), id); err == nil {
			data["User"] = user
		}
	}
	Render(c, h.sessions, http.StatusOK, "index.html", data)
}

// Members is only routed behind RequireLogin and RequireActiveSubscription.
func (h *Handler) Members(c *gin.Context) {
	Render(c, h.sessions, http.StatusOK, "members.html", gin.H{"Title": "Members"})
}
