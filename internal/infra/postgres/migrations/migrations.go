package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for the tracker backend. Each migration registers
// itself from a file named <version>_<comment>.go.
var Migrations = migrate.NewMigrations()
