package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deployctl/internal/deploy"
	"deployctl/internal/history"
	"deployctl/internal/logging"
	"deployctl/internal/runner"
	"deployctl/internal/sysctl"
)

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one deploy: snapshot, sync, restart, prune",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log, closer := logging.Setup(cfg.Logging)
			defer closer.Close()

			if !dryRun && !sysctl.Available() {
				log.Warn("systemctl not found on PATH; the restart step will fail")
			}

			opts := deploy.Options{Logger: log, DryRun: dryRun}

			// Dry runs are rehearsals; they do not belong in history.
			if !dryRun {
				store, cleanup, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				opts.Store = store
			}

			orch := deploy.New(cfg, runner.NewExecRunner(), opts)

			report, err := orch.Run(cmd.Context(), history.TriggerCLI)
			if report != nil {
				printReport(stdout, report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print commands instead of executing them")
	return cmd
}

func printReport(w io.Writer, report *deploy.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tDURATION\tDETAIL")
	for _, step := range report.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			step.Name, step.Status, step.Duration().Round(10*time.Millisecond), firstLine(step.Output))
	}
	_ = tw.Flush()

	if report.Success {
		fmt.Fprintf(w, "\ndeploy succeeded")
		if report.Revision != "" {
			fmt.Fprintf(w, " at %s", report.Revision)
		}
		if n := len(report.Warnings()); n > 0 {
			fmt.Fprintf(w, " with %d warning(s)", n)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "\ndeploy failed")
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
