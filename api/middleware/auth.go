package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/OldStager01/cold-autoscaler/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	// AuthCookie carries the token issued by /auth/login for browser clients.
	AuthCookie  = "auth_token"
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

var (
	errMissingToken   = errors.New("missing authorization header")
	errMalformedToken = errors.New("invalid authorization header format")
)

// bearerToken reads the token from the Authorization header, falling back to
// the login cookie when no header is sent.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(AuthorizationHeader)
	if header == "" {
		if cookie, err := c.Cookie(AuthCookie); err == nil && cookie != "" {
			return cookie, nil
		}
		return "", errMissingToken
	}

	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", errMalformedToken
	}
	return strings.TrimSpace(token), nil
}

// JWTAuth guards the operator routes. The authenticated operator is stored on
// the gin context for audit logging of manual runs.
func JWTAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := authService.ValidateToken(token)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

func GetUserID(c *gin.Context) int {
	return c.GetInt(UserIDKey)
}

// GetUsername returns the authenticated operator, or "" on public routes.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
