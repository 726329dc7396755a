// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocloud.dev/blob"

	auditUsecase "github.com/allisson/credvault/internal/audit/usecase"
	credentialUsecase "github.com/allisson/credvault/internal/credential/usecase"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/config"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	backupBucket    *blob.Bucket

	// Crypto
	encryptionService *cryptoService.EncryptionService
	keyDerivation     *cryptoService.KeyDerivationService
	masterKey         *cryptoDomain.MasterKey

	// Repositories
	credentialRepo credentialUsecase.StorageBackend
	auditLogRepo   auditUsecase.AuditLogRepository
	backupRepo     credentialUsecase.BackupRepository

	// Use Cases
	auditLogUseCase   auditUsecase.AuditLogUseCase
	credentialUseCase credentialUsecase.CredentialUseCase
	backupUseCase     credentialUsecase.BackupUseCase

	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	metricsInit           sync.Once
	backupBucketInit      sync.Once
	encryptionInit        sync.Once
	masterKeyInit         sync.Once
	credentialRepoInit    sync.Once
	auditLogRepoInit      sync.Once
	backupRepoInit        sync.Once
	auditLogUseCaseInit   sync.Once
	credentialUseCaseInit sync.Once
	backupUseCaseInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// initOnce runs fn through o and remembers its error under name, so every later call for
// the component fails the same way.
func (c *Container) initOnce(o *sync.Once, name string, fn func() error) error {
	o.Do(func() {
		if err := fn(); err != nil {
			c.mu.Lock()
			c.initErrors[name] = err
			c.mu.Unlock()
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection. It fails for the memory driver.
func (c *Container) DB() (*sql.DB, error) {
	err := c.initOnce(&c.dbInit, "db", func() error {
		var err error
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager for the configured driver.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.initOnce(&c.txManagerInit, "txManager", func() error {
		var err error
		c.txManager, err = c.initTxManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if err := c.initMetricsOnce(); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are
// disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	if err := c.initMetricsOnce(); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

func (c *Container) initMetricsOnce() error {
	return c.initOnce(&c.metricsInit, "metrics", func() error {
		var err error
		c.metricsProvider, c.businessMetrics, err = c.initMetrics()
		return err
	})
}

// Shutdown writes the metrics textfile and releases every initialized component.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsProvider != nil {
		if path := c.config.MetricsFile; path != "" {
			if err := c.metricsProvider.WriteTextfile(path); err != nil {
				shutdownErrors = append(shutdownErrors, err)
			}
		}
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.backupBucket != nil {
		if err := c.backupBucket.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("backup bucket close: %w", err))
		}
	}

	if c.masterKey != nil {
		c.masterKey.Destroy()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", apperrors.Join(shutdownErrors...))
	}
	return nil
}

// initLogger creates a JSON logger on stderr, so command output on stdout stays parseable.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), c.config.DatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	if c.config.DBDriver == database.DriverMemory {
		return database.NoopTxManager{}, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetrics() (*metrics.Provider, metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return nil, metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}

	bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return provider, bm, nil
}
