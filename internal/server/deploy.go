package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"deployctl/internal/deploy"
	"deployctl/internal/history"
)

// triggerDeploy starts a deploy run in the background.
// POST /api/deploy
// Header: X-Deploy-Token: <token>
func (s *Server) triggerDeploy(c *gin.Context) {
	report, err := s.orch.Begin(history.TriggerAPI)
	if err != nil {
		if errors.Is(err, deploy.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "a deploy is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Detached from the request context: a client hanging up must not
	// abort a deploy that already reset the working tree.
	go func() {
		if err := s.orch.Execute(context.Background(), report); err != nil {
			s.log.Error("deploy run failed", "run", report.RunID, "error", err)
		}
	}()

	statusURL, streamURL := s.runURLs(report.RunID)
	c.JSON(http.StatusAccepted, gin.H{
		"message":    "deploy started",
		"run_id":     report.RunID,
		"status_url": statusURL,
		"stream_url": streamURL,
	})
}
