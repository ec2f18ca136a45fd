package runner_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"deployctl/internal/runner"
)

func TestExecRunner_Success(t *testing.T) {
	r := runner.NewExecRunner()

	res := r.Run(context.Background(), runner.Spec{
		Program: "sh",
		Args:    []string{"-c", "echo hello"},
	})

	if !res.OK() {
		t.Fatalf("expected success, got error: %v", res.Err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("expected output 'hello', got %q", res.Output)
	}
	if res.Command != "sh -c echo hello" {
		t.Errorf("unexpected rendered command: %q", res.Command)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := runner.NewExecRunner()

	res := r.Run(context.Background(), runner.Spec{
		Program: "sh",
		Args:    []string{"-c", "echo broken >&2; exit 3"},
	})

	if res.OK() {
		t.Fatal("expected failure for exit 3")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "broken") {
		t.Errorf("stderr should be captured in output, got %q", res.Output)
	}
	if !strings.Contains(res.Err.Error(), "broken") {
		t.Errorf("error should carry command output, got %v", res.Err)
	}
}

func TestExecRunner_MissingProgram(t *testing.T) {
	r := runner.NewExecRunner()

	res := r.Run(context.Background(), runner.Spec{Program: "definitely-not-a-real-binary"})

	if res.OK() {
		t.Fatal("expected failure for missing program")
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", res.ExitCode)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	r := runner.NewExecRunner()

	start := time.Now()
	res := r.Run(context.Background(), runner.Spec{
		Program: "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})

	if res.OK() {
		t.Fatal("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout did not take effect, elapsed %v", elapsed)
	}
	if !strings.Contains(res.Err.Error(), "deadline") {
		t.Errorf("expected deadline error, got %v", res.Err)
	}
}

func TestExecRunner_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	r := runner.NewExecRunner()

	res := r.Run(context.Background(), runner.Spec{
		Program: "pwd",
		Dir:     dir,
	})

	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if strings.TrimSpace(res.Output) == "" {
		t.Error("expected pwd output")
	}
}

func TestDryRunner_RecordsWithoutExecuting(t *testing.T) {
	r := runner.NewDryRunner()

	res := r.Run(context.Background(), runner.Spec{
		Program: "rm",
		Args:    []string{"-rf", "/"},
	})

	if !res.OK() {
		t.Fatalf("dry run should always succeed, got %v", res.Err)
	}
	if len(r.Commands) != 1 || r.Commands[0] != "rm -rf /" {
		t.Errorf("unexpected recorded commands: %v", r.Commands)
	}
}

func TestFake_ScriptedResponses(t *testing.T) {
	f := runner.NewFake()
	f.Fail("git fetch", "network unreachable")

	res := f.Run(context.Background(), runner.Spec{Program: "git", Args: []string{"fetch", "origin", "main"}})
	if res.OK() {
		t.Fatal("expected scripted failure")
	}

	res = f.Run(context.Background(), runner.Spec{Program: "systemctl", Args: []string{"restart", "nginx"}})
	if !res.OK() {
		t.Fatalf("unmatched command should succeed, got %v", res.Err)
	}

	if !f.Called("systemctl restart nginx") {
		t.Error("expected call to be recorded")
	}
}
