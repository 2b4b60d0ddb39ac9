package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFiles embed.FS

const migrationsTable = "ante_schema_migrations"

// newMigrator builds a migrate instance over the store's own connection.
// The instance is never closed: closing it would close s.db.
func (s *Store) newMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "migrations/"+dialectDir(s.dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	var dbDriver database.Driver
	switch s.dialect {
	case DialectSQLite:
		dbDriver, err = sqlite3.WithInstance(s.db.DB, &sqlite3.Config{MigrationsTable: migrationsTable})
	case DialectPostgres:
		dbDriver, err = postgres.WithInstance(s.db.DB, &postgres.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", s.dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", s.dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, s.dialect, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func dialectDir(dialect string) string {
	if dialect == DialectSQLite {
		return "sqlite"
	}
	return dialect
}

// MigrateUp applies every pending migration. A dirty schema is refused.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrator()
	if err != nil {
		return err
	}
	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return errors.New("migration is dirty, please fix it before proceeding")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, _, _ := m.Version()
	s.logger.Info("database schema up to date", "version", version)
	return nil
}

// MigrateDown reverts every applied migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version. ok is false when no
// migration has run yet.
func (s *Store) MigrationVersion() (version uint, dirty, ok bool, err error) {
	m, err := s.newMigrator()
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty, true, nil
}
