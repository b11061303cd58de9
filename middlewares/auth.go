package middlewares

import (
	"net/http"

	"github.com/Instant-Chat-App/InstantChat-Server/auth"
	"github.com/gin-gonic/gin"
)

const memberIDKey = "member_id"

// TokenAuthMiddleware verifies the bearer token and stores the
// authenticated member id on the request context.
func TokenAuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "UNAUTHORIZED"})
			return
		}
		memberID, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}
		c.Set(memberIDKey, memberID)
		c.Next()
	}
}

// MemberID reads the identity set by TokenAuthMiddleware.
func MemberID(c *gin.Context) uint {
	id, _ := c.Get(memberIDKey)
	memberID, _ := id.(uint)
	return memberID
}
