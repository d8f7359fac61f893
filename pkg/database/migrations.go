package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
)

//go:embed migrations
var migrationsFS embed.FS

// Dialects lists the dialects that ship migrations.
var Dialects = []string{"mysql", "postgres", "sqlite", "sqlserver"}

// newDriver wraps db in the migrate driver for dialect.
func newDriver(db *sql.DB, dialect string) (migratedb.Driver, error) {
	switch dialect {
	case "mysql":
		return mysql.WithInstance(db, &mysql.Config{})
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		return sqlite.WithInstance(db, &sqlite.Config{})
	case "sqlserver":
		return sqlserver.WithInstance(db, &sqlserver.Config{})
	}
	return nil, fmt.Errorf("%w: no migrations for %q", apperrors.ErrUnsupportedDialect, dialect)
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	driver, err := newDriver(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Failed to close migration database", zap.Error(dbErr))
	}
}

// RunMigrations creates the wiki tables and the dpl_clview view. It is
// idempotent and safe to call multiple times - only pending migrations will
// be executed. Migrations create unprefixed tables.
//
// The migrate driver closes db when it is done, so callers pass a dedicated
// handle rather than the executor's pool.
func RunMigrations(db *sql.DB, dialect string, logger *zap.Logger) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}
	defer closeMigrate(m, logger)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)", zap.String("dialect", dialect))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully",
		zap.String("dialect", dialect),
		zap.Uint("version", newVersion))
	return nil
}

// MigrationVersion returns the applied version; 0 when nothing is applied.
// Like RunMigrations it consumes db.
func MigrationVersion(db *sql.DB, dialect string, logger *zap.Logger) (uint, bool, error) {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(m, logger)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}
