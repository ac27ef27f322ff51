// Package migrations embeds the PostgreSQL schema migrations so the binaries
// can apply them without a migrations directory on disk.
package migrations

import "embed"

// FS holds every *.sql migration file
//
//go:embed *.sql
var FS embed.FS
