package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(stdout io.Writer) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded deploy runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := store.ListRuns(limit, 0)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTRIGGER\tSTATUS\tREVISION\tSTARTED\tDURATION")
			for _, run := range runs {
				started, duration := "-", "-"
				if run.StartedAt != nil {
					started = run.StartedAt.Format(time.RFC3339)
					if run.FinishedAt != nil {
						duration = run.FinishedAt.Sub(*run.StartedAt).Round(time.Second).String()
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					run.ID, run.Trigger, run.Status, shortRevision(run.Revision), started, duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func shortRevision(rev string) string {
	if rev == "" {
		return "-"
	}
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
