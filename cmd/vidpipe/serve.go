package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/vidpipe/bootstrap"
	"github.com/kbukum/vidpipe/config"
	"github.com/kbukum/vidpipe/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, with queue.workers > 0, in-process workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Queue.Workers = workers
			}
			return run(cmd, cfg, service.ModeServe)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "override queue.workers")
	return cmd
}

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run queue workers only (redis or kafka queue)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return run(cmd, cfg, service.ModeWorker)
		},
	}
}

func run(cmd *cobra.Command, cfg *config.AppConfig, mode service.Mode) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if _, err := service.Wire(app, mode); err != nil {
		return err
	}
	app.Logger.Info("Starting", map[string]interface{}{"mode": mode.String()})
	return app.Run(cmd.Context())
}
