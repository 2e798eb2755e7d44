package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"potencialize/internal/authz"
)

// RequirePermission rejects the request early when the actor lacks key.
// Services check again before mutating.
func RequirePermission(reg *authz.Registry, key authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := Actor(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no user in context"})
			return
		}
		if !reg.HasPermission(user, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "permission": string(key)})
			return
		}
		c.Next()
	}
}
