// Package migrations compiles the schema migration SQL into the binary,
// so a deployed havend needs no migration files on disk.
package migrations

import (
	"embed"

	"github.com/haven-home/haven-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Hand the embedded files to the database package, which walks them
	// at startup. The .sql files sit at the root of the embedded FS.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
