// Package migrations holds the schema for users, their files and chat messages.
package migrations

import "embed"

// FS holds the numbered up/down migrations applied in order on open.
//
//go:embed *.sql
var FS embed.FS
