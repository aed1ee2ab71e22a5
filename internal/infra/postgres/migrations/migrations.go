// Package migrations holds the Postgres schema for quiz banks and device state.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
