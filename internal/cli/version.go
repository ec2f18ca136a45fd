package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"deployctl/internal/version"
)

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "deployctl %s\n", version.Version)
			fmt.Fprintf(stdout, "Build Time: %s\n", version.BuildTime)
			fmt.Fprintf(stdout, "Git Commit: %s\n", version.GitCommit)
		},
	}
}
