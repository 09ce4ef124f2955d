package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/security"
)

// APIKey guards mutation routes with the shared function key. The key is
// accepted either as the legacy ?code= query parameter or the X-Api-Key
// header. An empty configured key disables the check (local development).
func APIKey(configured string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if configured == "" {
			c.Next()
			return
		}

		presented := c.Query("code")
		if presented == "" {
			presented = c.GetHeader("X-Api-Key")
		}

		if !security.KeyMatches(configured, presented) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_function_key"})
			return
		}

		c.Next()
	}
}
