package middleware

import (
	"net/http"
	"net/url"

	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// RequireLogin loads the session user or redirects to the login page with
// the current path as next.
func RequireLogin(store *session.Store, repo users.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := store.UserID(c); ok {
			user, err := repo.FindByID(c.Request.Context(), id)
			if err == nil && user.IsActive {
				c.Set(userKey, user)
				c.Next()
				return
			}
		}

		target := paths.Login + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// CurrentUser is the user loaded by RequireLogin, or nil.
func CurrentUser(c *gin.Context) *users.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*users.User)
	return user
}
