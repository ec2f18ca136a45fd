// Package sysctl wraps the host's systemctl CLI for restarting and
// inspecting managed services. Service state itself is not modeled;
// names are opaque and resolved by systemd.
package sysctl

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"deployctl/internal/runner"
)

// Status is a point-in-time view of a unit as reported by systemd.
type Status struct {
	Name        string `json:"name"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
}

func (s Status) String() string {
	return fmt.Sprintf("%s: %s (%s)", s.Name, s.ActiveState, s.SubState)
}

// Manager issues systemctl commands through a Runner.
type Manager struct {
	runner  runner.Runner
	timeout time.Duration
}

// NewManager returns a Manager using the given runner for invocations.
func NewManager(r runner.Runner, timeout time.Duration) *Manager {
	return &Manager{runner: r, timeout: timeout}
}

// Available checks whether systemctl exists on PATH.
func Available() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// Restart restarts the named unit. A failure here is a hard error: a
// service that will not restart means the deployed code is not serving.
func (m *Manager) Restart(ctx context.Context, name string) error {
	res := m.runner.Run(ctx, runner.Spec{
		Program: "systemctl",
		Args:    []string{"restart", name},
		Timeout: m.timeout,
	})
	if !res.OK() {
		return fmt.Errorf("restart %s: %w", name, res.Err)
	}
	return nil
}

// QueryStatus reads the unit's ActiveState and SubState.
func (m *Manager) QueryStatus(ctx context.Context, name string) (Status, error) {
	status := Status{Name: name}

	active, err := m.property(ctx, name, "ActiveState")
	if err != nil {
		return status, fmt.Errorf("status %s: %w", name, err)
	}
	status.ActiveState = active

	sub, err := m.property(ctx, name, "SubState")
	if err != nil {
		return status, fmt.Errorf("status %s: %w", name, err)
	}
	status.SubState = sub

	return status, nil
}

func (m *Manager) property(ctx context.Context, name, property string) (string, error) {
	res := m.runner.Run(ctx, runner.Spec{
		Program: "systemctl",
		Args:    []string{"show", name, "--property=" + property, "--value"},
		Timeout: m.timeout,
	})
	if !res.OK() {
		return "", res.Err
	}
	return strings.TrimSpace(res.Output), nil
}
