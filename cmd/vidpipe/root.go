package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/vidpipe/config"
	"github.com/kbukum/vidpipe/version"
)

const serviceName = "vidpipe"

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Video production pipeline engine",
		Long: `vidpipe stores pipelines of media nodes, checks that a node's inputs are
complete before it runs, submits work to compute functions and applies
their callbacks.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: search ./cmd/vidpipe, ./config, .)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", ".env file to load")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newSchemasCmd(),
	)
	return cmd
}

// load reads the config without applying defaults; NewApp does that.
func (o *rootOptions) load() (*config.AppConfig, error) {
	var lopts []config.LoaderOption
	if o.configFile != "" {
		lopts = append(lopts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		lopts = append(lopts, config.WithEnvFile(o.envFile))
	}
	cfg := &config.AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, lopts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	return cfg, nil
}
