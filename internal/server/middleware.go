package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminKeyRequired guards the admin API with a static bearer key. It is a
// no-op when no key is configured.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	expected := strings.TrimSpace(s.cfg.AdminAPIKey)
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
