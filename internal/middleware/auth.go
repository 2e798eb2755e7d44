package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"potencialize/internal/models"
	"potencialize/internal/services"
)

const actorKey = "actor"

// TokenVerifier is the part of the auth service the middleware needs.
type TokenVerifier interface {
	Parse(token string) (*services.Claims, error)
	Actor(ctx context.Context, claims *services.Claims) (*models.User, error)
}

// public endpoints that need no token
func isPublicPath(path string) bool {
	switch path {
	case "/login":
		return true
	}
	return strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/healthz")
}

func AuthMiddleware(auth TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := auth.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		// deactivated users are rejected even with a valid token
		user, err := auth.Actor(c.Request.Context(), claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(actorKey, user)
		c.Set("user_id", user.ID)
		c.Set("role_id", user.RoleID)
		c.Next()
	}
}

// Actor returns the authenticated user, or nil on public routes.
func Actor(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
