package database

import (
	"context"
	"embed"

	"github.com/kbukum/vidpipe/database/migration"
)

// Migrations holds the SQL schema, one directory per driver.
//
//go:embed migrations
var Migrations embed.FS

// MigrationsPath returns the directory inside Migrations for driver.
func MigrationsPath(driver string) string {
	return "migrations/" + driver
}

// MigrateUp applies pending migrations for the connection's driver.
func (d *DB) MigrateUp(ctx context.Context) error {
	driverFunc, err := MigrationDriver(d.cfg.Driver)
	if err != nil {
		return err
	}
	d.log.Info("Applying migrations", map[string]interface{}{"driver": d.cfg.Driver})
	return migration.Up(d.WithContext(ctx), Migrations, MigrationsPath(d.cfg.Driver), driverFunc)
}

// MigrateDown rolls back every migration for the connection's driver.
func (d *DB) MigrateDown(ctx context.Context) error {
	driverFunc, err := MigrationDriver(d.cfg.Driver)
	if err != nil {
		return err
	}
	d.log.Warn("Rolling back all migrations", map[string]interface{}{"driver": d.cfg.Driver})
	return migration.Down(d.WithContext(ctx), Migrations, MigrationsPath(d.cfg.Driver), driverFunc)
}

// MigrationVersion reports the applied schema version.
func (d *DB) MigrationVersion(ctx context.Context) (uint, bool, error) {
	driverFunc, err := MigrationDriver(d.cfg.Driver)
	if err != nil {
		return 0, false, err
	}
	return migration.Version(d.WithContext(ctx), Migrations, MigrationsPath(d.cfg.Driver), driverFunc)
}
