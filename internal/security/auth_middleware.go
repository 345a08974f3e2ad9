package security

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schema-registry/internal/middleware"
	"schema-registry/pkg/response"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	jwtManager *JWTManager
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtManager *JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth creates a middleware that requires a valid bearer token. The
// validated claims land on the context so handlers can default performedBy to
// the authenticated subject.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			am.unauthorized(c, "Authorization header is required")
			return
		}

		token, err := am.jwtManager.ExtractTokenFromHeader(authHeader)
		if err != nil {
			am.unauthorized(c, err.Error())
			return
		}

		claims, err := am.jwtManager.ValidateToken(token)
		if err != nil {
			am.unauthorized(c, "Invalid or expired token")
			return
		}

		am.storeClaims(c, claims)
		c.Next()
	}
}

// RequireRole requires a valid token that carries the given role
func (am *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	requireAuth := am.RequireAuth()
	return func(c *gin.Context) {
		requireAuth(c)
		if c.IsAborted() {
			return
		}

		claims, exists := c.Get("user_claims")
		userClaims, ok := claims.(*Claims)
		if !exists || !ok {
			am.unauthorized(c, "User claims not found")
			return
		}

		if !userClaims.HasRole(role) {
			c.JSON(http.StatusForbidden, response.ForbiddenResponse(
				"Insufficient permissions",
				middleware.GetCorrelationID(c),
			))
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuth validates a bearer token when one is present but lets
// unauthenticated requests through
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, err := am.jwtManager.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.Next()
			return
		}

		claims, err := am.jwtManager.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		am.storeClaims(c, claims)
		c.Next()
	}
}

func (am *AuthMiddleware) storeClaims(c *gin.Context, claims *Claims) {
	c.Set("user_claims", claims)
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("user_roles", claims.Roles)
}

func (am *AuthMiddleware) unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
		message,
		middleware.GetCorrelationID(c),
	))
	c.Abort()
}
