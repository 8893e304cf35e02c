// Package store persists triangulation runs in SQLite so results can be
// compared across captures.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/fiducial3d/internal/monitoring"
	"github.com/banshee-data/fiducial3d/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the run database.
type Store struct {
	*sql.DB
	// Clock stamps new runs.
	Clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and applies all
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	s := &Store{DB: db, Clock: timeutil.RealClock{}}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.MigrateUp(migrations); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Debugf("opened run database %s", path)
	return s, nil
}
