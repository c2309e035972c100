package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

// MigrationsDir is the golang-migrate source URL for the schema files.
var MigrationsDir = "file://migrations"

// RunMigrations applies every pending migration.
func RunMigrations(databaseURL string) error {
	return withMigrator(databaseURL, "apply", func(m *migrate.Migrate) error { return m.Up() })
}

// RollbackMigrations reverts the whole schema. Used by tests and local resets.
func RollbackMigrations(databaseURL string) error {
	return withMigrator(databaseURL, "rollback", func(m *migrate.Migrate) error { return m.Down() })
}

// SchemaVersion reports the applied version; 0 means no migration has run.
func SchemaVersion(databaseURL string) (uint, bool, error) {
	m, err := migrate.New(MigrationsDir, databaseURL)
	if err != nil {
		return 0, false, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func withMigrator(databaseURL, action string, run func(*migrate.Migrate) error) error {
	m, err := migrate.New(MigrationsDir, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s migrations: %w", action, err)
	}

	version, dirty, _ := m.Version()
	log.Info().Str("action", action).Uint("version", version).Bool("dirty", dirty).Msg("migrations done")
	return nil
}
