package pages

import (
	"accounts-app/internal/api/forms"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

// Render executes an html template with the pending flashes, the session
// user and empty form errors filled in when the caller left them out.
func Render(c *gin.Context, store *session.Store, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["User"]; !ok {
		if user := middleware.CurrentUser(c); user != nil {
			data["User"] = user
		}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors{}
	}
	data["Flashes"] = store.Flashes(c)

	c.HTML(status, name, data)
}
