// Package server exposes the deploy orchestrator over HTTP: a
// token-authenticated trigger endpoint, run history, live output
// streaming, and host metrics.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deployctl/internal/config"
	"deployctl/internal/deploy"
	"deployctl/internal/history"
	"deployctl/internal/version"
)

type Server struct {
	cfg   *config.Config
	orch  *deploy.Orchestrator
	store *history.Store
	hub   *deploy.Hub
	log   *slog.Logger
}

func New(cfg *config.Config, orch *deploy.Orchestrator, store *history.Store, hub *deploy.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:   cfg,
		orch:  orch,
		store: store,
		hub:   hub,
		log:   log,
	}
}

// Router builds the gin engine with all routes mounted under the
// configured path prefix.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	prefix := r.Group(s.cfg.Server.PathPrefix)

	prefix.GET("/healthz", s.healthz)

	api := prefix.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info())
		})

		protected := api.Group("")
		protected.Use(s.tokenAuth())
		{
			protected.POST("/deploy", s.triggerDeploy)
			protected.GET("/runs", s.listRuns)
			protected.GET("/runs/:id", s.getRun)
			protected.GET("/runs/:id/stream", s.streamRun)
			protected.GET("/metrics", s.systemMetrics)
		}
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runURLs builds the status and stream URLs for a run id.
func (s *Server) runURLs(id string) (status, stream string) {
	base := s.cfg.Server.PathPrefix + "/api/runs/" + id
	return base, base + "/stream"
}
