// Package cli implements the deployctl command line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"deployctl/internal/config"
	"deployctl/internal/database"
	"deployctl/internal/history"
)

// NewRootCmd returns the root cobra command for deployctl.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deployctl",
		Short:         "Snapshot, sync, and restart automation for a Python web app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().String("config", "config.yaml", "path to config file")

	cmd.AddCommand(newRunCmd(stdout, stderr))
	cmd.AddCommand(newPruneCmd(stdout))
	cmd.AddCommand(newServeCmd(stdout, stderr))
	cmd.AddCommand(newHistoryCmd(stdout))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// openStore opens the run history database and migrates it.
func openStore(cfg *config.Config) (*history.Store, func(), error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate history database: %w", err)
	}
	return history.NewStore(db), func() { db.Close() }, nil
}
