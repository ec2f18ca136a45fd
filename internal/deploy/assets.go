package deploy

import (
	"fmt"
	"os"
	"path/filepath"
)

// prepareOutputDirs ensures the generated-assets directory exists under
// the static tree. When the static directory itself is absent there is
// nothing to prepare and the step is a no-op.
func (o *Orchestrator) prepareOutputDirs() stepOutcome {
	static := o.cfg.Project.StaticDir

	if _, err := os.Stat(static); os.IsNotExist(err) {
		return skipped(fmt.Sprintf("static dir %s absent; nothing to prepare", static))
	} else if err != nil {
		return fatal(fmt.Errorf("stat static dir: %w", err))
	}

	generated := filepath.Join(static, "generated")
	if o.dryRun {
		return ok(fmt.Sprintf("would ensure %s", generated))
	}
	if err := os.MkdirAll(generated, 0755); err != nil {
		return fatal(fmt.Errorf("create %s: %w", generated, err))
	}

	return ok(fmt.Sprintf("ensured %s", generated))
}
