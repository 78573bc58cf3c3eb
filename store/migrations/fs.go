// Package migrations embeds the device store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
