package apikey

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/mailgate/internal/logger"
)

const ctxKey = "caller"

// Middleware validates the Bearer API key and records the caller label in the
// gin context and the request context. With no keys configured every request
// passes.
func (s *Set) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		label, ok := s.Lookup(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(ctxKey, label)
		c.Request = c.Request.WithContext(logger.WithCaller(c.Request.Context(), label))
		c.Next()
	}
}

// FromContext returns the authenticated caller label, or "".
func FromContext(c *gin.Context) string {
	return c.GetString(ctxKey)
}
