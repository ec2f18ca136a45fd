package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"deployctl/internal/history"
)

// streamRun streams a run's output as server-sent events. Finished
// runs replay their recorded step output; live runs attach to the hub.
// GET /api/runs/:id/stream
func (s *Server) streamRun(c *gin.Context) {
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

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if run.Status == history.StatusSuccess || run.Status == history.StatusFailed {
		s.replayRun(c, run)
		return
	}

	ch := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(id, ch)

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			if line, found := strings.CutPrefix(msg, "output:"); found {
				_, _ = fmt.Fprintf(w, "event: output\ndata: %s\n\n", line)
				return true
			}
			if status, found := strings.CutPrefix(msg, "complete:"); found {
				_, _ = fmt.Fprintf(w, "event: complete\ndata: {\"status\": %q}\n\n", status)
				return false
			}
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// replayRun emits a finished run's recorded step output and terminal
// status.
func (s *Server) replayRun(c *gin.Context, run *history.Run) {
	steps, err := s.store.ListSteps(run.ID)
	if err != nil {
		s.log.Error("failed to list steps for replay", "run", run.ID, "error", err)
	}

	for _, step := range steps {
		_, _ = fmt.Fprintf(c.Writer, "event: output\ndata: ==> %s\n\n", step.Name)
		for _, line := range strings.Split(step.Output, "\n") {
			if line != "" {
				_, _ = fmt.Fprintf(c.Writer, "event: output\ndata: %s\n\n", line)
			}
		}
	}

	_, _ = fmt.Fprintf(c.Writer, "event: complete\ndata: {\"status\": %q}\n\n", run.Status)
	c.Writer.Flush()
}
