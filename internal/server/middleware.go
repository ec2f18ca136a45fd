package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// tokenAuth requires a valid X-Deploy-Token header on every request.
// Comparison is constant-time to prevent timing attacks.
func (s *Server) tokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := s.cfg.Server.DeployToken
		if configured == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deploy token not configured"})
			c.Abort()
			return
		}

		token := c.GetHeader("X-Deploy-Token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-Deploy-Token header"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(configured), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// requestLogger logs each request with method, path, status, and
// latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"client", c.ClientIP(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
