package migrations

import "embed"

// FS contains embedded SQLite migrations for answers storage.
//
//go:embed *.sql
var FS embed.FS
