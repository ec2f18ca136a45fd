package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deployctl/internal/metrics"
)

// systemMetrics returns a host resource snapshot.
// GET /api/metrics
func (s *Server) systemMetrics(c *gin.Context) {
	m, err := metrics.Collect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}
