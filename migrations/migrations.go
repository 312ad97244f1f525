// Package migrations embeds the SQL schema files.
package migrations

import "embed"

// FS holds every numbered up/down migration.
//
//go:embed *.sql
var FS embed.FS
