package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/vidpipe/database"
	"github.com/kbukum/vidpipe/logger"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSub(opts, "up", "Apply pending migrations", func(ctx context.Context, db *database.DB) error {
			return db.MigrateUp(ctx)
		}),
		migrateSub(opts, "down", "Roll back every migration", func(ctx context.Context, db *database.DB) error {
			return db.MigrateDown(ctx)
		}),
		migrateSub(opts, "version", "Print the applied schema version", func(ctx context.Context, db *database.DB) error {
			v, dirty, err := db.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%v\n", v, dirty)
			return nil
		}),
	)
	return cmd
}

// migrateSub opens only the database, so migrations run without the
// rest of the config being valid.
func migrateSub(opts *rootOptions, use, short string, fn func(context.Context, *database.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cfg.ServiceConfig.ApplyDefaults()
			cfg.Database.ApplyDefaults()
			if err := cfg.Database.Validate(); err != nil {
				return fmt.Errorf("config.database: %w", err)
			}
			log := logger.New(&cfg.Logging, cfg.Name).WithComponent("migrate")

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := fn(ctx, db); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			log.Info("Migration finished", map[string]interface{}{"command": use, "driver": db.Driver()})
			return nil
		},
	}
}
