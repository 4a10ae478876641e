// Package storage provides database access and migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	cerrors "github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/migrations"
)

// MigrationRunner drives schema migrations from the embedded migrations.FS
// through golang-migrate, replacing the hand-rolled version-tracking loop
// with the library's own schema_migrations bookkeeping.
type MigrationRunner struct {
	m *migrate.Migrate
}

// NewMigrationRunner builds a MigrationRunner bound to db.
func NewMigrationRunner(db *sql.DB) (*MigrationRunner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, cerrors.NewMigrationFailed("postgres driver", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, cerrors.NewMigrationFailed("iofs source", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, cerrors.NewMigrationFailed("migrate instance", err)
	}
	return &MigrationRunner{m: m}, nil
}

// Run applies all pending migrations. Gateway startup fails if this errors.
func (r *MigrationRunner) Run(ctx context.Context) error {
	if err := r.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return cerrors.NewMigrationFailed("up", err)
	}
	return nil
}

// Close releases the underlying source and database driver handles.
func (r *MigrationRunner) Close() error {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
