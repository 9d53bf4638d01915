// Package migrations embebe los archivos SQL del esquema.
package migrations

import "embed"

// FS contiene las migraciones, ordenadas por nombre.
//
//go:embed *.sql
var FS embed.FS
