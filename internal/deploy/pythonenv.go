package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"deployctl/internal/runner"
)

// pythonEnv ensures the isolated runtime environment exists and its
// installed package set matches the requirements manifest. A missing
// manifest is the one tolerated gap in the whole flow: dependency
// installation is skipped with a warning and the run continues.
func (o *Orchestrator) pythonEnv(ctx context.Context) stepOutcome {
	venv := o.cfg.Project.VenvDir
	pip := filepath.Join(venv, "bin", "pip")

	if _, err := os.Stat(venv); os.IsNotExist(err) {
		res := o.exec(ctx, runner.Spec{
			Program: o.cfg.Project.Python,
			Args:    []string{"-m", "venv", venv},
			Dir:     o.cfg.Project.Dir,
		})
		if !res.OK() {
			return fatalResult(res)
		}
	} else if err != nil {
		return fatal(fmt.Errorf("stat venv: %w", err))
	}

	res := o.exec(ctx, runner.Spec{
		Program: pip,
		Args:    []string{"install", "--upgrade", "pip"},
		Dir:     o.cfg.Project.Dir,
	})
	if !res.OK() {
		return fatalResult(res)
	}

	manifest := o.cfg.Project.Requirements
	if _, err := os.Stat(manifest); os.IsNotExist(err) {
		return warn(
			fmt.Sprintf("requirements manifest not found: %s; skipping dependency install", manifest),
			err,
		)
	} else if err != nil {
		return fatal(fmt.Errorf("stat requirements: %w", err))
	}

	res = o.exec(ctx, runner.Spec{
		Program: pip,
		Args:    []string{"install", "-r", manifest},
		Dir:     o.cfg.Project.Dir,
	})
	if !res.OK() {
		return fatalResult(res)
	}

	return ok(fmt.Sprintf("dependencies installed from %s", manifest))
}
