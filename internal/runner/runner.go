// Package runner executes external commands and reports typed results.
// Every tool the orchestrator drives (rsync, git, python, pip,
// systemctl) goes through a Runner, so the fatal/tolerated decision is
// made by the caller on an explicit result instead of a raw exit code.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Spec describes a single external command invocation.
type Spec struct {
	Program string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// String renders the invocation for logs and dry-run output.
func (s Spec) String() string {
	parts := append([]string{s.Program}, s.Args...)
	return strings.Join(parts, " ")
}

// Result is the outcome of one invocation. Err is nil exactly when the
// command ran and exited zero.
type Result struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// ExecRunner runs commands with os/exec, capturing combined output.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, spec Spec) Result {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir

	output, err := cmd.CombinedOutput()
	res := Result{
		Command: spec.String(),
		Output:  string(output),
	}

	if err == nil {
		return res
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Err = fmt.Errorf("%s: %w", spec.String(), ctxErr)
		return res
	}

	res.Err = fmt.Errorf("%s: %w: %s", spec.String(), err, strings.TrimSpace(res.Output))
	return res
}

// DryRunner records commands without executing them. Every invocation
// succeeds.
type DryRunner struct {
	// Commands accumulates the rendered command lines in order.
	Commands []string
}

// NewDryRunner returns a Runner that only records invocations.
func NewDryRunner() *DryRunner {
	return &DryRunner{}
}

func (r *DryRunner) Run(_ context.Context, spec Spec) Result {
	line := spec.String()
	r.Commands = append(r.Commands, line)
	return Result{Command: line, Output: "(dry run)"}
}
