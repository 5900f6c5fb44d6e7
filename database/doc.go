// Package database provides the GORM connection used by the node store,
// with pooling, retrying connects, transactions and SQL migrations.
//
// Two drivers are supported, selected by Config.Driver:
//
//   - sqlite: gorm.io/driver/sqlite, single connection, row locks are a no-op
//     because SQLite serializes writers.
//   - postgres: gorm.io/driver/postgres, SELECT ... FOR UPDATE row locks.
//
// The schema lives in embedded SQL files under migrations/<driver>/ and is
// applied with golang-migrate, either on Component start (auto_migrate) or
// through the `vidpipe migrate` command.
//
//	db := database.NewComponent(cfg.Database, log)
//	if err := db.Start(ctx); err != nil { ... }
//	store := gormstore.New(db.DB())
package database
