package deploy

import (
	"context"
	"fmt"
	"strings"

	"deployctl/internal/runner"
)

// sync forces the working tree to the remote branch tip. This discards
// any local divergence; the snapshot taken immediately before is the
// only way back. Afterwards HEAD must equal the remote ref exactly.
func (o *Orchestrator) sync(ctx context.Context) (string, stepOutcome) {
	remote := o.cfg.Project.Remote
	branch := o.cfg.Project.Branch
	ref := remote + "/" + branch

	res := o.exec(ctx, runner.Spec{
		Program: "git",
		Args:    []string{"fetch", remote, branch},
		Dir:     o.cfg.Project.Dir,
	})
	if !res.OK() {
		return "", fatalResult(res)
	}

	res = o.exec(ctx, runner.Spec{
		Program: "git",
		Args:    []string{"reset", "--hard", ref},
		Dir:     o.cfg.Project.Dir,
	})
	if !res.OK() {
		return "", fatalResult(res)
	}

	if o.dryRun {
		return "", ok(fmt.Sprintf("would reset to %s", ref))
	}

	head, outcome := o.revParse(ctx, "HEAD")
	if outcome.err != nil {
		return "", outcome
	}
	want, outcome := o.revParse(ctx, ref)
	if outcome.err != nil {
		return "", outcome
	}
	if head != want {
		return "", fatal(fmt.Errorf("working tree at %s but %s is %s", head, ref, want))
	}

	return head, ok(fmt.Sprintf("reset to %s (%s)", ref, head))
}

func (o *Orchestrator) revParse(ctx context.Context, ref string) (string, stepOutcome) {
	res := o.exec(ctx, runner.Spec{
		Program: "git",
		Args:    []string{"rev-parse", ref},
		Dir:     o.cfg.Project.Dir,
	})
	if !res.OK() {
		return "", fatalResult(res)
	}
	return strings.TrimSpace(res.Output), stepOutcome{}
}
