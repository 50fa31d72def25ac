// Package migrations embeds the goose migrations for the client-side
// SQLite draft database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
