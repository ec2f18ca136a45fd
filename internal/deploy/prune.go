package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneCandidate is a snapshot directory eligible for deletion.
type PruneCandidate struct {
	Name    string
	Path    string
	ModTime time.Time
}

// PlanPrune lists snapshot directories under root that match the
// <prefix>-<timestamp> naming pattern and whose last-modified time is
// older than cutoff. Non-matching names are never candidates, however
// old; matching names younger than cutoff are always kept.
func PlanPrune(root, prefix string, cutoff time.Time) ([]PruneCandidate, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup root: %w", err)
	}

	var candidates []PruneCandidate
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !matchesSnapshot(prefix, e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) || info.ModTime().Equal(cutoff) {
			continue
		}
		candidates = append(candidates, PruneCandidate{
			Name:    e.Name(),
			Path:    filepath.Join(root, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return candidates, nil
}

// DeleteCandidates removes the planned snapshot directories.
func DeleteCandidates(candidates []PruneCandidate) error {
	for _, c := range candidates {
		if err := os.RemoveAll(c.Path); err != nil {
			return fmt.Errorf("remove %s: %w", c.Path, err)
		}
	}
	return nil
}

// prune deletes snapshots older than the retention window.
func (o *Orchestrator) prune() stepOutcome {
	cutoff := o.now().Add(-o.cfg.Retention())

	candidates, err := PlanPrune(o.cfg.Backup.Root, o.cfg.SnapshotPrefix(), cutoff)
	if err != nil {
		return fatal(err)
	}
	if len(candidates) == 0 {
		return ok("no snapshots past retention")
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}

	if o.dryRun {
		return ok(fmt.Sprintf("would delete %d snapshots: %s", len(candidates), strings.Join(names, ", ")))
	}

	if err := DeleteCandidates(candidates); err != nil {
		return fatal(err)
	}
	return ok(fmt.Sprintf("deleted %d snapshots: %s", len(candidates), strings.Join(names, ", ")))
}
