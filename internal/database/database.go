// Package database provides database connection management and transaction scoping for the
// SQL storage backends.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	apperrors "github.com/allisson/credvault/internal/errors"
)

// Supported values of Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	// DriverMemory keeps credentials and audit logs in process memory. No connection is opened.
	DriverMemory = "memory"
)

// ErrUnsupportedDriver indicates a Config.Driver the vault cannot store records with.
var ErrUnsupportedDriver = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported database driver")

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// IsSQL reports whether the driver is backed by a SQL server.
func (c Config) IsSQL() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverMySQL
}

// Connect opens and pings a SQL connection pool for a postgres or mysql driver.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if !cfg.IsSQL() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
