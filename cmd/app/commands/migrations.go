package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/allisson/credvault/internal/database"
	"github.com/allisson/credvault/migrations"
)

// RunMigrations applies all pending migrations for driver. The SQL files are embedded in the
// binary. The memory driver keeps no schema, so there is nothing to migrate.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	if driver == database.DriverMemory {
		logger.Info("memory driver selected, skipping migrations")
		return nil
	}

	logger.Info("running database migrations",
		slog.String("driver", driver),
	)

	migrationsPath := "postgresql"
	if driver == database.DriverMySQL {
		migrationsPath = "mysql"
		// golang-migrate selects its database driver from the URL scheme
		if !strings.HasPrefix(connectionString, "mysql://") {
			connectionString = "mysql://" + connectionString
		}
	}

	source, err := iofs.New(migrations.FS, migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
