// Package migrations embeds the SQL migration files into the binary so the
// controller can create its job store schema without files on disk.
package migrations

import (
	"embed"

	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
