// Package migrations embebe las migraciones SQL de PostgreSQL.
package migrations

import "embed"

// FS contiene las migraciones versionadas ({version}_{name}.sql).
//
//go:embed *.sql
var FS embed.FS

// Dir es el directorio raíz dentro de FS.
const Dir = "."
