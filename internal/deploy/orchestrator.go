// Package deploy implements the deploy orchestration sequence: snapshot
// the project tree, hard-reset it to the remote branch tip, refresh the
// Python environment, prepare output directories, restart the managed
// services, and prune expired snapshots. The sequence is strictly
// linear and aborts on the first fatal step; the snapshot taken up
// front is the only recovery mechanism.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"deployctl/internal/config"
	"deployctl/internal/history"
	"deployctl/internal/metrics"
	"deployctl/internal/runner"
	"deployctl/internal/sysctl"
)

// Options carries the orchestrator's optional collaborators.
type Options struct {
	// Store records runs and steps when non-nil.
	Store *history.Store
	// Hub receives live output lines when non-nil.
	Hub *Hub
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// DryRun prints external commands instead of executing them and
	// never deletes snapshots.
	DryRun bool
}

// ErrRunInProgress is returned by Begin when a run is already
// executing. Concurrent deploys would race on the working tree.
var ErrRunInProgress = errors.New("a deploy run is already in progress")

// Orchestrator executes the deploy sequence. At most one run may be in
// flight at a time.
type Orchestrator struct {
	cfg      *config.Config
	run      runner.Runner
	services *sysctl.Manager
	store    *history.Store
	hub      *Hub
	log      *slog.Logger
	dryRun   bool
	busy     atomic.Bool

	// id of the run currently executing, for output broadcasting
	activeRun string

	// test seams
	freeSpace func(string) (uint64, error)
	now       func() time.Time
}

// New builds an Orchestrator. In dry-run mode the given runner is
// replaced with a recording DryRunner.
func New(cfg *config.Config, r runner.Runner, opts Options) *Orchestrator {
	if opts.DryRun {
		r = runner.NewDryRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:       cfg,
		run:       r,
		store:     opts.Store,
		hub:       opts.Hub,
		log:       logger,
		dryRun:    opts.DryRun,
		freeSpace: metrics.FreeSpace,
		now:       time.Now,
	}
	// systemctl goes through the exec path too, so restart and status
	// output streams to subscribers like every other step's commands.
	o.services = sysctl.NewManager(execRunner{o}, cfg.Execution.StepTimeout())
	return o
}

// execRunner adapts the orchestrator's exec path to the Runner
// interface consumed by the service manager.
type execRunner struct {
	o *Orchestrator
}

func (e execRunner) Run(ctx context.Context, spec runner.Spec) runner.Result {
	return e.o.exec(ctx, spec)
}

// stepOutcome is the internal result of one step before it is stamped
// with a name and timing.
type stepOutcome struct {
	status   StepStatus
	output   string
	exitCode *int
	err      error
}

func ok(msg string) stepOutcome {
	return stepOutcome{status: StepOK, output: msg}
}

func skipped(msg string) stepOutcome {
	return stepOutcome{status: StepSkipped, output: msg}
}

func warn(msg string, err error) stepOutcome {
	return stepOutcome{status: StepWarn, output: msg, err: err}
}

func fatal(err error) stepOutcome {
	return stepOutcome{status: StepFailed, output: err.Error(), err: err}
}

func fatalResult(res runner.Result) stepOutcome {
	code := res.ExitCode
	return stepOutcome{
		status:   StepFailed,
		output:   strings.TrimSpace(res.Output),
		exitCode: &code,
		err:      res.Err,
	}
}

// Begin claims the single run slot and records a pending run. The
// returned report must be passed to Execute, which releases the slot.
func (o *Orchestrator) Begin(trigger history.Trigger) (*Report, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	report := &Report{}

	if o.store != nil {
		run, err := o.store.CreateRun(trigger)
		if err != nil {
			o.busy.Store(false)
			return nil, fmt.Errorf("record run: %w", err)
		}
		report.RunID = run.ID
		if err := o.store.StartRun(run.ID); err != nil {
			o.busy.Store(false)
			return nil, fmt.Errorf("start run: %w", err)
		}
	}
	o.activeRun = report.RunID

	return report, nil
}

// Execute runs the sequence for a report obtained from Begin. The
// report is populated with the steps that ran; err is non-nil when a
// fatal step aborted the run. Tolerated failures surface as warn steps
// only.
func (o *Orchestrator) Execute(ctx context.Context, report *Report) error {
	defer o.busy.Store(false)

	err := o.sequence(ctx, report)

	status := history.StatusSuccess
	errMsg := ""
	if err != nil {
		status = history.StatusFailed
		errMsg = err.Error()
	}
	report.Success = err == nil

	if o.store != nil {
		if ferr := o.store.FinishRun(report.RunID, status, report.Snapshot, report.Revision, errMsg); ferr != nil {
			o.log.Error("failed to record run result", "run", report.RunID, "error", ferr)
		}
	}
	if o.hub != nil && report.RunID != "" {
		o.hub.BroadcastComplete(report.RunID, string(status))
	}

	if err != nil {
		o.log.Error("deploy failed", "run", report.RunID, "error", err)
		return err
	}
	o.log.Info("deploy complete", "run", report.RunID,
		"snapshot", report.Snapshot, "revision", report.Revision,
		"warnings", len(report.Warnings()))
	return nil
}

// Run is Begin followed by Execute.
func (o *Orchestrator) Run(ctx context.Context, trigger history.Trigger) (*Report, error) {
	report, err := o.Begin(trigger)
	if err != nil {
		return nil, err
	}
	return report, o.Execute(ctx, report)
}

// sequence runs the ordered steps, stopping at the first fatal one.
func (o *Orchestrator) sequence(ctx context.Context, report *Report) error {
	if err := o.step(report, "preflight", func() stepOutcome {
		return o.preflight()
	}); err != nil {
		return err
	}

	if err := o.step(report, "snapshot", func() stepOutcome {
		target, outcome := o.snapshot(ctx)
		report.Snapshot = target
		return outcome
	}); err != nil {
		return err
	}

	if err := o.step(report, "sync", func() stepOutcome {
		revision, outcome := o.sync(ctx)
		report.Revision = revision
		return outcome
	}); err != nil {
		return err
	}

	if err := o.step(report, "pythonenv", func() stepOutcome {
		return o.pythonEnv(ctx)
	}); err != nil {
		return err
	}

	if err := o.step(report, "assets", func() stepOutcome {
		return o.prepareOutputDirs()
	}); err != nil {
		return err
	}

	for _, name := range o.cfg.Services {
		svc := name
		if err := o.step(report, "restart:"+svc, func() stepOutcome {
			return o.restartService(ctx, svc)
		}); err != nil {
			return err
		}
	}

	return o.step(report, "prune", func() stepOutcome {
		return o.prune()
	})
}

// step runs one step, records its result, and returns an error only
// for fatal outcomes.
func (o *Orchestrator) step(report *Report, name string, fn func() stepOutcome) error {
	started := o.now()
	o.emit(report.RunID, fmt.Sprintf("==> %s", name))

	outcome := fn()
	finished := o.now()

	result := StepResult{
		Name:       name,
		Status:     outcome.status,
		Output:     outcome.output,
		ExitCode:   outcome.exitCode,
		Err:        outcome.err,
		StartedAt:  started,
		FinishedAt: finished,
	}
	report.Steps = append(report.Steps, result)

	switch outcome.status {
	case StepWarn:
		o.log.Warn(outcome.output, "step", name, "error", outcome.err)
		o.emit(report.RunID, fmt.Sprintf("WARNING: %s", outcome.output))
	case StepFailed:
		o.emit(report.RunID, fmt.Sprintf("FATAL: %s", outcome.output))
	default:
		o.log.Info(outcome.output, "step", name)
		o.emit(report.RunID, outcome.output)
	}

	if o.store != nil && report.RunID != "" {
		if err := o.store.RecordStep(report.RunID, name, string(outcome.status), outcome.exitCode, outcome.output, started, finished); err != nil {
			o.log.Error("failed to record step", "step", name, "error", err)
		}
	}

	if outcome.status == StepFailed {
		return fmt.Errorf("%s: %w", name, outcome.err)
	}
	return nil
}

// exec runs one external command with the configured step timeout and
// streams its output to subscribers.
func (o *Orchestrator) exec(ctx context.Context, spec runner.Spec) runner.Result {
	if spec.Timeout == 0 {
		spec.Timeout = o.cfg.Execution.StepTimeout()
	}

	o.log.Debug("exec", "command", spec.String())
	res := o.run.Run(ctx, spec)

	if o.hub != nil {
		for _, line := range strings.Split(strings.TrimRight(res.Output, "\n"), "\n") {
			if line != "" {
				o.emitOutput(line)
			}
		}
	}
	return res
}

// emitOutput forwards a raw command output line to the active run's
// subscribers.
func (o *Orchestrator) emitOutput(line string) {
	if o.hub != nil && o.activeRun != "" {
		o.hub.BroadcastLine(o.activeRun, line)
	}
}

func (o *Orchestrator) emit(runID, line string) {
	if o.hub != nil && runID != "" {
		o.hub.BroadcastLine(runID, line)
	}
}
