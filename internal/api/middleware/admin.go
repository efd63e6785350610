package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// AdminToken 관리자 토큰 검증 미들웨어
func AdminToken(token string) gin.HandlerFunc {
	expected := []byte(token)

	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(AdminTokenHeader))

		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid admin token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
