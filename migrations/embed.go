// Package migrations holds the SQL schema for the postgres session backend.
package migrations

import "embed"

// FS contains every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
