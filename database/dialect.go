package database

import (
	"database/sql"
	"fmt"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/vidpipe/database/migration"
)

// Dialector returns the GORM dialector for the configured driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// MigrationDriver returns the golang-migrate driver constructor for the configured driver.
func MigrationDriver(driver string) (migration.DriverFunc, error) {
	switch driver {
	case DriverSQLite:
		return func(db *sql.DB) (migratedb.Driver, error) {
			return migratesqlite.WithInstance(db, &migratesqlite.Config{})
		}, nil
	case DriverPostgres:
		return func(db *sql.DB) (migratedb.Driver, error) {
			return migratepg.WithInstance(db, &migratepg.Config{})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
