package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/response"
)

// ServiceKeyHeader carries the shared key used by sibling services calling
// the lifecycle endpoints.
const ServiceKeyHeader = "X-Service-Key"

// ServiceKey guards service-to-service routes with a bcrypt-hashed shared
// key. Purges are triggered by the hierarchy management system, not by end
// users, so these routes bypass user JWTs entirely.
func ServiceKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "service key not configured"))
			c.Abort()
			return
		}
		key := c.GetHeader(ServiceKeyHeader)
		if key == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing service key"))
			c.Abort()
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid service key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
