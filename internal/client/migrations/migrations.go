// Package migrations embeds the goose SQL migrations of the client history
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
