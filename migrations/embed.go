// Package migrations embeds the audit database schema into the binary.
//
// Import it for side effects wherever the audit database is opened.
package migrations

import (
	"embed"

	"github.com/nerrad567/sensorbridge/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
