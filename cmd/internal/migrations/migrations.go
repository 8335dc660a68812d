// Package migrations embeds the goose SQL migrations for the astro schema.
package migrations

import "embed"

// FS holds every *.sql migration, rooted at ".".
//
//go:embed *.sql
var FS embed.FS
