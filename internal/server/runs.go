package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deployctl/internal/history"
)

// listRuns returns recent runs, newest first.
// GET /api/runs?limit=20&offset=0
func (s *Server) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := s.store.ListRuns(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// getRun returns one run with its steps.
// GET /api/runs/:id
func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")

	run, err := s.store.GetRun(id)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	steps, err := s.store.ListSteps(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if steps == nil {
		steps = []history.Step{}
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "steps": steps})
}
