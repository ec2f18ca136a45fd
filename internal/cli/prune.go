package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deployctl/internal/deploy"
)

func newPruneCmd(stdout io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			now := time.Now()
			cutoff := now.Add(-cfg.Retention())
			candidates, err := deploy.PlanPrune(cfg.Backup.Root, cfg.SnapshotPrefix(), cutoff)
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				fmt.Fprintln(stdout, "no snapshots past retention")
				return nil
			}

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAGE\tACTION")
			for _, c := range candidates {
				age := now.Sub(c.ModTime).Round(time.Hour)
				fmt.Fprintf(tw, "%s\t%s\tdelete\n", c.Name, age)
			}
			_ = tw.Flush()

			if dryRun {
				return nil
			}

			if err := deploy.DeleteCandidates(candidates); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "deleted %d snapshots\n", len(candidates))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be deleted without deleting")
	return cmd
}
