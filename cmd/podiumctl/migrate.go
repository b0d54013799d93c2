package main

import (
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/config"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Usage: "postgres or sqlite; defaults to database_driver"},
			&cli.StringFlag{Name: "dsn", Usage: "database DSN; defaults to database_dsn"},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Init(c.Context); err != nil {
						return err
					}
					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no new migrations to run")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no groups to roll back")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations: %s\n", ms)
					fmt.Fprintf(c.App.Writer, "unapplied migrations: %s\n", ms.Unapplied())
					fmt.Fprintf(c.App.Writer, "last migration group: %s\n", ms.LastGroup())
					return nil
				}),
			},
		},
	}
}

// withMigrator opens the configured database for the duration of fn.
func withMigrator(fn func(*cli.Context, *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := openDB(c)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return fn(c, repository.Migrator(db))
	}
}

func openDB(c *cli.Context) (*bun.DB, error) {
	cfg, err := config.Load(c.Context)
	if err != nil {
		return nil, err
	}
	driver, dsn := cfg.DatabaseDriver, cfg.DatabaseDSN
	if v := c.String("driver"); v != "" {
		driver = v
	}
	if v := c.String("dsn"); v != "" {
		dsn = v
	}
	if driver == config.DriverMemory {
		return nil, fmt.Errorf("the memory driver has no schema to migrate")
	}
	return repository.OpenDB(driver, dsn)
}
