// Package migrations holds the schema migrations of the durable store.
package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}

// columnTypes returns the timestamp and JSON column types for the dialect.
func columnTypes(db *bun.DB) (timestamp, json string) {
	if db.Dialect().Name() == dialect.PG {
		return "TIMESTAMPTZ", "JSONB"
	}
	return "TIMESTAMP", "TEXT"
}
