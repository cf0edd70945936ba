package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

// Context keys set by the auth middlewares
const (
	ContextUserID      = "user_id"
	ContextEmail       = "email"
	ContextAccessToken = "access_token"
)

// Headers the gateway forwards to upstream services
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// IdentityResolver maps an access token to its signed-in identity, or nil
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, accessToken string) (*models.Identity, error)
}

// TokenValidator verifies a token's signature and claims
type TokenValidator interface {
	ValidateIdentity(tokenString string) (*models.Identity, error)
}

// AuthMiddleware handles authentication for the gateway and the auth service
type AuthMiddleware struct {
	resolver  IdentityResolver
	validator TokenValidator
}

// NewAuthMiddleware creates a middleware. A nil validator skips signature
// checks and relies on the session lookup alone.
func NewAuthMiddleware(resolver IdentityResolver, validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, validator: validator}
}

// RequireAuth accepts requests carrying a token with a live session
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		if am.validator != nil {
			if _, err := am.validator.ValidateIdentity(tokenString); err != nil {
				logrus.WithError(err).Debug("Token signature check failed")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}
		}

		identity, err := am.resolver.CurrentIdentity(c.Request.Context(), tokenString)
		if err != nil {
			logrus.WithError(err).Warn("Session lookup failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication temporarily unavailable"})
			c.Abort()
			return
		}
		if identity == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or signed out"})
			c.Abort()
			return
		}

		setIdentity(c, *identity)
		c.Set(ContextAccessToken, tokenString)
		c.Next()
	}
}

// RequireForwardedIdentity trusts the identity headers set by the gateway.
// Upstream services are only reachable through the gateway.
func RequireForwardedIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User identity required"})
			c.Abort()
			return
		}
		setIdentity(c, models.Identity{UserID: userID, Email: c.GetHeader(HeaderUserEmail)})
		c.Next()
	}
}

func setIdentity(c *gin.Context, identity models.Identity) {
	c.Set(ContextUserID, identity.UserID)
	c.Set(ContextEmail, identity.Email)
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Check for "Bearer " prefix
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// GetIdentityFromContext returns the identity set by an auth middleware
func GetIdentityFromContext(c *gin.Context) (models.Identity, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return models.Identity{}, false
	}
	return models.Identity{UserID: userID, Email: c.GetString(ContextEmail)}, true
}

// GetAccessToken returns the token RequireAuth accepted
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ContextAccessToken)
}
