package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/jwt"
	"crmnice/internal/pkg/logger"
)

const (
	ContextIdentity = "identity"
	ContextUserID   = "user_id"
	ContextRole     = "role"

	LoginURL = "/accounts/login/"
)

// IdentityLoader turns a token subject into the current identity. It fails
// for unknown or inactive accounts.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID int64) (*domain.Identity, error)
}

// Session resolves the session token (Bearer header first, then the cookie)
// and stores the identity in the context. Requests without a valid session
// pass through anonymous; guards decide what they may see.
func Session(tokens *jwt.Service, loader IdentityLoader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c, cookieName)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			logger.Debug("session token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Next()
			return
		}

		id, err := loader.LoadIdentity(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Debug("session identity not loaded", zap.Int64("user_id", claims.UserID), zap.Error(err))
			c.Next()
			return
		}

		c.Set(ContextIdentity, id)
		c.Set(ContextUserID, id.UserID)
		c.Set(ContextRole, string(id.Role))
		c.Next()
	}
}

func tokenFrom(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}

// CurrentIdentity returns the authenticated requester, nil for anonymous requests.
func CurrentIdentity(c *gin.Context) *domain.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}

// RequireLogin sends anonymous requests to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c) == nil {
			redirectToLogin(c)
			return
		}
		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	next := url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusSeeOther, LoginURL+"?next="+next)
	c.Abort()
}
