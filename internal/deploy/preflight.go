package deploy

import (
	"fmt"
	"os"
)

// preflight ensures the backup root exists and its filesystem has
// enough free space for a snapshot. Aborting here keeps the invariant
// that the destructive sync never runs without a completed backup.
func (o *Orchestrator) preflight() stepOutcome {
	root := o.cfg.Backup.Root

	if o.dryRun {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return ok(fmt.Sprintf("backup root %s would be created", root))
		}
	} else if err := os.MkdirAll(root, 0750); err != nil {
		return fatal(fmt.Errorf("create backup root: %w", err))
	}

	free, err := o.freeSpace(root)
	if err != nil {
		return fatal(err)
	}

	minFree := o.cfg.Backup.MinFreeMB * 1024 * 1024
	if free < minFree {
		return fatal(fmt.Errorf("backup root %s has %d MB free, need at least %d MB",
			root, free/(1024*1024), o.cfg.Backup.MinFreeMB))
	}

	return ok(fmt.Sprintf("%d MB free under %s", free/(1024*1024), root))
}
