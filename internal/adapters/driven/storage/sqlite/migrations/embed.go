// Package migrations embeds the SQLite schema migration files.
package migrations

import "embed"

// FS holds the .up.sql migration files, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
