// File: backend/services/audit-service/migrations/migrations.go

package migrations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Manager applies the SQL migrations in this directory.
type Manager struct {
	sourceURL   string
	databaseURL string
	logger      *zap.Logger
}

// NewManager creates a migration manager. path may be given with or without
// the file:// scheme.
func NewManager(path, databaseURL string, logger *zap.Logger) *Manager {
	if !strings.HasPrefix(path, "file://") {
		path = "file://" + path
	}
	return &Manager{
		sourceURL:   path,
		databaseURL: databaseURL,
		logger:      logger.Named("migrations"),
	}
}

func (m *Manager) newMigrator() (*migrate.Migrate, error) {
	migrator, err := migrate.New(m.sourceURL, m.databaseURL)
	if err != nil {
		m.logger.Error("Failed to create migrator", zap.Error(err), zap.String("source", m.sourceURL))
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}

// MigrateUp applies all pending migrations.
func (m *Manager) MigrateUp() error {
	migrator, err := m.newMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		m.logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
	} else {
		m.logger.Info("Migrations applied successfully")
	}
	return nil
}

// MigrateDown rolls every migration back.
func (m *Manager) MigrateDown() error {
	migrator, err := m.newMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	err = migrator.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		m.logger.Error("Failed to rollback migrations", zap.Error(err))
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	m.logger.Info("Migrations rolled back")
	return nil
}

// Version returns the current schema version. A database without any
// applied migration reports version 0.
func (m *Manager) Version() (uint, bool, error) {
	migrator, err := m.newMigrator()
	if err != nil {
		return 0, false, err
	}
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty, nil
}

// FixDirtyState clears the dirty flag left by a failed migration.
func (m *Manager) FixDirtyState() error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	migrator, err := m.newMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Force(int(version)); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	m.logger.Info("Dirty state fixed", zap.Uint("version", version))
	return nil
}
