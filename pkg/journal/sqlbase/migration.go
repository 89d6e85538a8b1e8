// Package sqlbase provides schema migrations for SQL journals.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

var ErrInvalidMigration = errors.New("invalid migration")

// Migration is one schema change. Versions start at 1 and are applied in
// ascending order, each exactly once.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationManager records applied versions in schema_migrations.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations []Migration) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger.With("component", "migrations"),
		migrations: migrations,
	}
}

// Sorted validates migrations and returns them in version order.
func Sorted(migrations []Migration) ([]Migration, error) {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	for i, migration := range sorted {
		switch {
		case migration.Version < 1:
			return nil, fmt.Errorf("%w: version %d must be positive", ErrInvalidMigration, migration.Version)
		case migration.SQL == "":
			return nil, fmt.Errorf("%w: version %d has no statements", ErrInvalidMigration, migration.Version)
		case i > 0 && sorted[i-1].Version == migration.Version:
			return nil, fmt.Errorf("%w: version %d declared twice", ErrInvalidMigration, migration.Version)
		}
	}

	return sorted, nil
}

// RunMigrations applies every migration newer than the recorded version.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	pending, err := Sorted(m.migrations)
	if err != nil {
		return err
	}

	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	applied := 0

	for _, migration := range pending {
		if migration.Version <= current {
			continue
		}

		if err := m.apply(ctx, migration); err != nil {
			return err
		}

		current = migration.Version
		applied++
	}

	m.logger.InfoContext(ctx, "Schema up to date", "version", current, "applied", applied)

	return nil
}

// CurrentVersion returns the highest applied migration, 0 when none.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

func (m *MigrationManager) apply(ctx context.Context, migration Migration) error {
	m.logger.InfoContext(ctx, "Applying migration",
		"version", migration.Version,
		"description", migration.Description,
	)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: failed to begin transaction: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return errors.Join(fmt.Errorf("migration %d: %w", migration.Version, err), tx.Rollback())
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
		migration.Version, migration.Description,
	); err != nil {
		return errors.Join(fmt.Errorf("migration %d: failed to record version: %w", migration.Version, err), tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: failed to commit: %w", migration.Version, err)
	}

	return nil
}
