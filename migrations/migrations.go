// Package migrations embeds the SQL schema migrations applied by cmd/migrate
// and by database tests.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql migration.
//
//go:embed *.sql
var FS embed.FS
