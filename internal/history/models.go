package history

import "time"

// RunStatus is the lifecycle state of a deploy run.
type RunStatus string

const (
	// StatusPending indicates the run is recorded but not started.
	StatusPending RunStatus = "pending"
	// StatusRunning indicates the run is in progress.
	StatusRunning RunStatus = "running"
	// StatusSuccess indicates the run completed; tolerated warnings do
	// not affect this state.
	StatusSuccess RunStatus = "success"
	// StatusFailed indicates the run aborted on a fatal step.
	StatusFailed RunStatus = "failed"
)

// Trigger identifies what started a run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// Run is one recorded deploy run.
type Run struct {
	ID         string     `json:"id"`
	Trigger    Trigger    `json:"trigger"`
	Status     RunStatus  `json:"status"`
	Snapshot   string     `json:"snapshot"`
	Revision   string     `json:"revision"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Step is one recorded step within a run.
type Step struct {
	ID         int64      `json:"id"`
	RunID      string     `json:"run_id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	ExitCode   *int       `json:"exit_code"`
	Output     string     `json:"output"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
