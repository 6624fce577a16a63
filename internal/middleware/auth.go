package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/utils"
)

const (
	userIDContextKey    = "user_id"
	userEmailContextKey = "user_email"
)

var errAuthFailed = apperr.Authentication("Authentication failed.")

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

// AuthMiddleware requires a valid bearer token on every request except
// CORS preflights. Every failure yields the same 403.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			_ = c.Error(errAuthFailed)
			c.Abort()
			return
		}

		claims, err := verifier.Verify(tokenParts[1])
		if err != nil {
			_ = c.Error(apperr.Wrap(apperr.KindAuthentication, errAuthFailed.Message, err))
			c.Abort()
			return
		}

		c.Set(userIDContextKey, claims.UserID)
		c.Set(userEmailContextKey, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside the auth gate.
func UserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
