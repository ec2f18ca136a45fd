// Package schedule triggers periodic deploy runs from a cron
// expression.
package schedule

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"deployctl/internal/deploy"
	"deployctl/internal/history"
)

// Scheduler fires deploy runs on a cron schedule. A tick that lands
// while a run is still executing is skipped, not queued.
type Scheduler struct {
	orch *deploy.Orchestrator
	log  *slog.Logger
	cron *cron.Cron
}

// New validates the cron expression and returns a ready Scheduler.
func New(expr string, orch *deploy.Orchestrator, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		orch: orch,
		log:  log,
		cron: cron.New(),
	}

	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing ticks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	report, err := s.orch.Run(context.Background(), history.TriggerSchedule)
	if err != nil {
		if errors.Is(err, deploy.ErrRunInProgress) {
			s.log.Warn("scheduled deploy skipped, another run is in progress")
			return
		}
		s.log.Error("scheduled deploy failed", "error", err)
		return
	}
	s.log.Info("scheduled deploy complete", "run", report.RunID, "revision", report.Revision)
}
