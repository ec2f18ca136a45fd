package deploy

import (
	"context"
	"fmt"
)

// restartService restarts one managed service and reports its status.
// The restart itself is fatal on failure; the status query is
// best-effort reporting and a failure there is logged and tolerated.
func (o *Orchestrator) restartService(ctx context.Context, name string) stepOutcome {
	if err := o.services.Restart(ctx, name); err != nil {
		return fatal(err)
	}

	status, err := o.services.QueryStatus(ctx, name)
	if err != nil {
		return warn(fmt.Sprintf("%s restarted; status query failed", name), err)
	}

	return ok(status.String())
}
