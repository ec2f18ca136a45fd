package deploy

import "time"

// StepStatus is the outcome of a single orchestration step.
type StepStatus string

const (
	// StepOK indicates the step completed cleanly.
	StepOK StepStatus = "ok"
	// StepWarn indicates a tolerated failure: the step's problem was
	// logged and the run continued.
	StepWarn StepStatus = "warn"
	// StepFailed indicates a fatal failure that aborted the run.
	StepFailed StepStatus = "failed"
	// StepSkipped indicates the step had nothing to do.
	StepSkipped StepStatus = "skipped"
)

// StepResult is the typed result of one step.
type StepResult struct {
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	Output     string     `json:"output"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Err        error      `json:"-"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Duration is the step's wall-clock time.
func (r StepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report summarizes one deploy run.
type Report struct {
	RunID    string       `json:"run_id"`
	Success  bool         `json:"success"`
	Snapshot string       `json:"snapshot"`
	Revision string       `json:"revision"`
	Steps    []StepResult `json:"steps"`
}

// Warnings returns the tolerated failures encountered during the run.
func (r *Report) Warnings() []StepResult {
	var warns []StepResult
	for _, s := range r.Steps {
		if s.Status == StepWarn {
			warns = append(warns, s)
		}
	}
	return warns
}
