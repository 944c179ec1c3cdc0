package middleware

import (
	"github.com/gin-gonic/gin"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/render"
)

const deniedURL = "/companies/"

// RequireCapability lets the request through only if the requester's role
// grants cap. Others are sent back to the company list with a warning;
// anonymous requests go to the login page.
func RequireCapability(cap domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id == nil {
			redirectToLogin(c)
			return
		}

		if !id.Can(cap) {
			render.Redirect(c, deniedURL, render.LevelWarning, "You do not have permission to perform this action.")
			c.Abort()
			return
		}

		c.Next()
	}
}
