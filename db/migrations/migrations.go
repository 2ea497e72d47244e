// Package migrations embeds the goose SQL migrations.
package migrations

import "embed"

// Dir is the directory of the migrations inside FS.
const Dir = "sql"

// FS holds the migration files.
//
//go:embed sql/*.sql
var FS embed.FS
