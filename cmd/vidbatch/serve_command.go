package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidbatch/internal/daemon"
	"vidbatch/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon and HTTP polling API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			hub := logging.NewStreamHub(cfg.Logging.TailSize)
			logger, err := logging.NewFromConfig(cfg, hub)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			d, err := daemon.New(cfg, logger, hub, ctx.daemonOpts...)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Close()

			addr, err := d.ServeAPI(signalCtx)
			if err != nil {
				return err
			}
			if cfg.Paths.InputDir != "" {
				if _, err := d.Scan(signalCtx, ""); err != nil {
					logging.WarnWithContext(logger, "initial scan skipped", "initial_scan_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "set paths.input_dir or POST /api/scan with a root"),
					)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vidbatch listening on http://%s\n", addr)

			<-signalCtx.Done()
			logger.Info("vidbatch daemon shutting down")
			return nil
		},
	}
}
