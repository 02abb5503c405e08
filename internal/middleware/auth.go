// Package middleware holds the gin middleware for authentication, roles and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/log"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	const bearerPrefix = "Bearer "
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return tok, tok != ""
}

// AuthMiddleware rejects requests without a valid, unrevoked access token and
// stores the caller's *model.User under "user".
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if service.KindOf(err) != service.KindUnauthorized {
				log.Error("authenticate request", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, tok)
		c.Next()
	}
}

// OptionalAuth sets "user" when a valid token is present and lets anonymous requests through.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearerToken(c); ok {
			if user, err := auth.Authenticate(c.Request.Context(), tok); err == nil {
				c.Set(userKey, user)
				c.Set(tokenKey, tok)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware or OptionalAuth.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// CurrentToken returns the raw bearer token of an authenticated request.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
