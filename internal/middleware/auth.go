// Package middleware carries the bearer-token authentication gate. Every /api
// and /ws route resolves a caller identity here before any session logic runs.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// identityKey is the gin context key the authenticated user id is stored under.
const identityKey = "auth.user_id"

// CallerID extracts the authenticated user id from the request context.
func CallerID(c *gin.Context) (string, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// RequireAuth verifies the Authorization bearer token (HS256) and attaches the
// subject as the caller identity. Missing or invalid tokens are rejected with
// a structured unauthenticated error before any handler runs.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthenticated(c, "no token provided")
			return
		}
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthenticated(c, "token verification failed")
			return
		}
		c.Set(identityKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Error:   string(errs.KindUnauthenticated),
		Message: "not authorized: " + msg,
	})
}
