package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"deployctl/internal/deploy"
	"deployctl/internal/logging"
	"deployctl/internal/runner"
	"deployctl/internal/schedule"
	"deployctl/internal/server"
)

func newServeCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deploy API, with optional scheduled runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Server.DeployToken == "" {
				return errors.New("server.deploy_token (or DEPLOY_TOKEN) must be set to serve")
			}

			log, closer := logging.Setup(cfg.Logging)
			defer closer.Close()

			store, cleanup, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			hub := deploy.NewHub()
			orch := deploy.New(cfg, runner.NewExecRunner(), deploy.Options{
				Store:  store,
				Hub:    hub,
				Logger: log,
			})

			if expr := cfg.Server.Schedule; expr != "" {
				sched, err := schedule.New(expr, orch, log)
				if err != nil {
					return fmt.Errorf("invalid schedule %q: %w", expr, err)
				}
				sched.Start()
				defer sched.Stop()
				log.Info("scheduled deploys enabled", "schedule", expr)
			}

			srv := server.New(cfg, orch, store, hub, log)
			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			log.Info("deploy API listening", "addr", addr, "prefix", cfg.Server.PathPrefix)

			return srv.Router().Run(addr)
		},
	}
	return cmd
}
