// Package migrations embeds the numbered SQL schema files so the server
// binary can migrate without the source tree.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
