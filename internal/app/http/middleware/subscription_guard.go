package middleware

import (
	"net/http"
	"time"

	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription must run after RequireLogin.
func RequireActiveSubscription(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Redirect(http.StatusFound, paths.Login)
			c.Abort()
			return
		}

		// Check expiration
		if !user.Profile.HasActiveSubscription(time.Now()) {
			store.AddFlash(c, session.FlashInfo, "You need an active subscription to view that page")
			c.Redirect(http.StatusFound, paths.Subscribe)
			c.Abort()
			return
		}

		c.Next()
	}
}
