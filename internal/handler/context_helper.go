package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openedu/filezone-api/internal/middleware"
	"github.com/openedu/filezone-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerCode returns the caller's user code, zero for anonymous requests.
func viewerCode(c *gin.Context) int64 {
	claims := claimsFromContext(c)
	if claims == nil {
		return 0
	}
	return claims.UserCode
}

// parseQueryInt64 reads an optional numeric query parameter, zero when
// absent or malformed.
func parseQueryInt64(c *gin.Context, name string) int64 {
	value, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
