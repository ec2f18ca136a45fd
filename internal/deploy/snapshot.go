package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deployctl/internal/runner"
)

// snapshotTimeFormat produces names like monorepo-2026-08-25-040000.
const snapshotTimeFormat = "2006-01-02-150405"

// snapshotName builds the timestamped directory name for a snapshot.
func snapshotName(prefix string, now time.Time) string {
	return prefix + "-" + now.Format(snapshotTimeFormat)
}

// matchesSnapshot reports whether a directory name follows the
// <prefix>-<timestamp> snapshot pattern.
func matchesSnapshot(prefix, name string) bool {
	rest, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return false
	}
	_, err := time.Parse(snapshotTimeFormat, rest)
	return err == nil
}

// snapshot mirrors the project tree into a fresh timestamped directory
// under the backup root. The virtualenv and the backup root itself are
// excluded so a snapshot never nests environments or older snapshots.
// The destructive sync step must not run unless this succeeds.
func (o *Orchestrator) snapshot(ctx context.Context) (string, stepOutcome) {
	target := filepath.Join(o.cfg.Backup.Root, snapshotName(o.cfg.SnapshotPrefix(), o.now()))

	if !o.dryRun {
		if err := os.MkdirAll(target, 0750); err != nil {
			return "", fatal(fmt.Errorf("create snapshot dir: %w", err))
		}
	}

	args := []string{"-a", "--delete"}
	for _, excl := range o.snapshotExcludes() {
		args = append(args, "--exclude", excl)
	}
	// Trailing slash: copy the tree's contents, not the dir itself.
	args = append(args, o.cfg.Project.Dir+"/", target+"/")

	res := o.exec(ctx, runner.Spec{Program: "rsync", Args: args})
	if !res.OK() {
		return "", fatalResult(res)
	}

	if !o.dryRun {
		entries, err := os.ReadDir(target)
		if err != nil {
			return "", fatal(fmt.Errorf("verify snapshot: %w", err))
		}
		if len(entries) == 0 {
			return "", fatal(fmt.Errorf("snapshot %s is empty", target))
		}
	}

	return target, ok(fmt.Sprintf("snapshot created at %s", target))
}

// snapshotExcludes computes rsync exclude patterns for the virtualenv
// and, when it lives inside the project tree, the backup root.
func (o *Orchestrator) snapshotExcludes() []string {
	var excludes []string
	for _, dir := range []string{o.cfg.Project.VenvDir, o.cfg.Backup.Root} {
		rel, err := filepath.Rel(o.cfg.Project.Dir, dir)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		excludes = append(excludes, "/"+rel)
	}
	return excludes
}
