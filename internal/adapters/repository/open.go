package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/okian/podium/internal/adapters/repository/migrations"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// OpenDB opens a bun database for a SQL driver.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("repository: open sqlite: %w", err)
		}
		// One connection keeps in-memory databases shared and serialises writers.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("repository: unsupported driver %q", driver)
	}
}

// Open returns a Repository for driver along with a close function.
func Open(ctx context.Context, driver, dsn string) (Repository, func() error, error) {
	if driver == DriverMemory {
		return NewMemoryRepository(), func() error { return nil }, nil
	}
	db, err := OpenDB(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("repository: ping %s: %w", driver, err)
	}
	return NewSQLRepository(db), db.Close, nil
}

// Migrator returns a migrator over the schema migrations.
func Migrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, migrations.Migrations)
}

// Migrate creates the migration tables and applies every pending migration.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	m := Migrator(db)
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("repository: init migrations: %w", err)
	}
	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: migrate: %w", err)
	}
	return group, nil
}
