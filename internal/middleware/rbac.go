package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

// RequireRoles lets the request through when the caller holds one of roles.
// It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AnyStaff admits every dashboard role: reads and cover operations.
func AnyStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleStaff)
}

// AdminOnly guards directory writes, deletes and broadcasts.
func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
