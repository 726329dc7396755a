package app

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	auditRepository "github.com/allisson/credvault/internal/audit/repository"
	auditService "github.com/allisson/credvault/internal/audit/service"
	auditUsecase "github.com/allisson/credvault/internal/audit/usecase"
	credentialRepository "github.com/allisson/credvault/internal/credential/repository"
	credentialUsecase "github.com/allisson/credvault/internal/credential/usecase"
	"github.com/allisson/credvault/internal/database"
)

// CredentialRepository returns the storage backend for the configured driver.
func (c *Container) CredentialRepository() (credentialUsecase.StorageBackend, error) {
	err := c.initOnce(&c.credentialRepoInit, "credentialRepo", func() error {
		var err error
		c.credentialRepo, err = c.initCredentialRepository()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.credentialRepo, nil
}

// AuditLogRepository returns the audit store for the configured driver.
func (c *Container) AuditLogRepository() (auditUsecase.AuditLogRepository, error) {
	err := c.initOnce(&c.auditLogRepoInit, "auditLogRepo", func() error {
		var err error
		c.auditLogRepo, err = c.initAuditLogRepository()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.auditLogRepo, nil
}

// BackupBucket returns the bucket opened from BACKUP_BUCKET_URL.
func (c *Container) BackupBucket() (*blob.Bucket, error) {
	err := c.initOnce(&c.backupBucketInit, "backupBucket", func() error {
		bucket, err := blob.OpenBucket(context.Background(), c.config.BackupBucketURL)
		if err != nil {
			return fmt.Errorf("failed to open backup bucket: %w", err)
		}
		c.backupBucket = bucket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.backupBucket, nil
}

// BackupRepository returns the backup bundle store.
func (c *Container) BackupRepository() (credentialUsecase.BackupRepository, error) {
	err := c.initOnce(&c.backupRepoInit, "backupRepo", func() error {
		bucket, err := c.BackupBucket()
		if err != nil {
			return err
		}
		c.backupRepo = credentialRepository.NewBlobBackupRepository(bucket, c.config.BackupPrefix)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.backupRepo, nil
}

// AuditLogUseCase returns the signing audit logger.
func (c *Container) AuditLogUseCase() (auditUsecase.AuditLogUseCase, error) {
	err := c.initOnce(&c.auditLogUseCaseInit, "auditLogUseCase", func() error {
		var err error
		c.auditLogUseCase, err = c.initAuditLogUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.auditLogUseCase, nil
}

// CredentialUseCase returns the vault, wrapped with metrics.
func (c *Container) CredentialUseCase() (credentialUsecase.CredentialUseCase, error) {
	err := c.initOnce(&c.credentialUseCaseInit, "credentialUseCase", func() error {
		var err error
		c.credentialUseCase, err = c.initCredentialUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.credentialUseCase, nil
}

// BackupUseCase returns the backup and restore use case, wrapped with metrics.
func (c *Container) BackupUseCase() (credentialUsecase.BackupUseCase, error) {
	err := c.initOnce(&c.backupUseCaseInit, "backupUseCase", func() error {
		var err error
		c.backupUseCase, err = c.initBackupUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.backupUseCase, nil
}

func (c *Container) initCredentialRepository() (credentialUsecase.StorageBackend, error) {
	if c.config.DBDriver == database.DriverMemory {
		return credentialRepository.NewMemoryCredentialRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for credential repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return credentialRepository.NewPostgreSQLCredentialRepository(db), nil
	case database.DriverMySQL:
		return credentialRepository.NewMySQLCredentialRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
	}
}

func (c *Container) initAuditLogRepository() (auditUsecase.AuditLogRepository, error) {
	if c.config.DBDriver == database.DriverMemory {
		return auditRepository.NewMemoryAuditLogRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	case database.DriverMySQL:
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
	}
}

func (c *Container) initAuditLogUseCase() (auditUsecase.AuditLogUseCase, error) {
	repo, err := c.AuditLogRepository()
	if err != nil {
		return nil, err
	}

	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, err
	}

	return auditUsecase.NewAuditLogUseCase(repo, auditService.NewAuditSigner(), masterKey), nil
}

func (c *Container) initCredentialUseCase() (credentialUsecase.CredentialUseCase, error) {
	storage, err := c.CredentialRepository()
	if err != nil {
		return nil, err
	}

	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for credential use case: %w", err)
	}

	engine, err := c.EncryptionService()
	if err != nil {
		return nil, err
	}

	kdf, err := c.KeyDerivation()
	if err != nil {
		return nil, err
	}

	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, err
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := credentialUsecase.NewCredentialUseCase(
		storage,
		auditLog,
		engine,
		kdf,
		masterKey,
		c.config.PBKDF2Iterations,
		c.config.RotationConcurrency,
		c.Logger(),
	)
	return credentialUsecase.NewCredentialUseCaseWithMetrics(useCase, bm), nil
}

func (c *Container) initBackupUseCase() (credentialUsecase.BackupUseCase, error) {
	storage, err := c.CredentialRepository()
	if err != nil {
		return nil, err
	}

	backups, err := c.BackupRepository()
	if err != nil {
		return nil, err
	}

	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for backup use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := credentialUsecase.NewBackupUseCase(storage, backups, auditLog, txManager, c.Logger())
	return credentialUsecase.NewBackupUseCaseWithMetrics(useCase, bm), nil
}
