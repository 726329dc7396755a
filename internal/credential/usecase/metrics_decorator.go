package usecase

import (
	"context"
	"time"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/metrics"
)

const (
	credentialsDomain = "credentials"
	backupsDomain     = "backups"
)

var errPartialRotation = apperrors.New("partial rotation")

func observe(
	ctx context.Context,
	m metrics.BusinessMetrics,
	domain, operation string,
	start time.Time,
	err error,
) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) Create(
	ctx context.Context,
	input credentialDomain.CreateInput,
) (*credentialDomain.StoredCredential, error) {
	start := time.Now()
	cred, err := c.next.Create(ctx, input)
	observe(ctx, c.metrics, credentialsDomain, "credential_create", start, err)
	return cred, err
}

func (c *credentialUseCaseWithMetrics) Read(
	ctx context.Context,
	userID, credentialID string,
	opts credentialDomain.ReadOptions,
) (*credentialDomain.DecryptedCredential, error) {
	start := time.Now()
	cred, err := c.next.Read(ctx, userID, credentialID, opts)
	observe(ctx, c.metrics, credentialsDomain, "credential_read", start, err)
	return cred, err
}

func (c *credentialUseCaseWithMetrics) Update(
	ctx context.Context,
	userID, credentialID string,
	input credentialDomain.UpdateInput,
) (*credentialDomain.StoredCredential, error) {
	start := time.Now()
	cred, err := c.next.Update(ctx, userID, credentialID, input)
	observe(ctx, c.metrics, credentialsDomain, "credential_update", start, err)
	return cred, err
}

func (c *credentialUseCaseWithMetrics) Delete(ctx context.Context, userID, credentialID string) (bool, error) {
	start := time.Now()
	existed, err := c.next.Delete(ctx, userID, credentialID)
	observe(ctx, c.metrics, credentialsDomain, "credential_delete", start, err)
	return existed, err
}

func (c *credentialUseCaseWithMetrics) Deactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	start := time.Now()
	cred, err := c.next.Deactivate(ctx, userID, credentialID)
	observe(ctx, c.metrics, credentialsDomain, "credential_deactivate", start, err)
	return cred, err
}

func (c *credentialUseCaseWithMetrics) Reactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	start := time.Now()
	cred, err := c.next.Reactivate(ctx, userID, credentialID)
	observe(ctx, c.metrics, credentialsDomain, "credential_reactivate", start, err)
	return cred, err
}

func (c *credentialUseCaseWithMetrics) Rotate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	start := time.Now()
	cred, err := c.next.Rotate(ctx, userID, credentialID)
	observe(ctx, c.metrics, credentialsDomain, "credential_rotate", start, err)
	return cred, err
}

// RotateUser counts a batch with any failed rotation as an error.
func (c *credentialUseCaseWithMetrics) RotateUser(
	ctx context.Context,
	userID string,
) (*credentialDomain.RotationReport, error) {
	start := time.Now()
	report, err := c.next.RotateUser(ctx, userID)

	observed := err
	if observed == nil && len(report.Failed) > 0 {
		observed = errPartialRotation
	}
	observe(ctx, c.metrics, credentialsDomain, "credential_rotate_user", start, observed)
	if report != nil {
		c.metrics.RecordCredentials(ctx, credentialsDomain, "credential_rotate_user", len(report.Rotated))
	}
	return report, err
}

func (c *credentialUseCaseWithMetrics) List(
	ctx context.Context,
	query credentialDomain.Query,
) ([]*credentialDomain.Summary, error) {
	start := time.Now()
	summaries, err := c.next.List(ctx, query)
	observe(ctx, c.metrics, credentialsDomain, "credential_list", start, err)
	return summaries, err
}

func (c *credentialUseCaseWithMetrics) DeactivateExpired(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := c.next.DeactivateExpired(ctx)
	observe(ctx, c.metrics, credentialsDomain, "credential_deactivate_expired", start, err)
	c.metrics.RecordCredentials(ctx, credentialsDomain, "credential_deactivate_expired", count)
	return count, err
}

// backupUseCaseWithMetrics decorates BackupUseCase with metrics instrumentation.
type backupUseCaseWithMetrics struct {
	next    BackupUseCase
	metrics metrics.BusinessMetrics
}

// NewBackupUseCaseWithMetrics wraps a BackupUseCase with metrics recording.
func NewBackupUseCaseWithMetrics(useCase BackupUseCase, m metrics.BusinessMetrics) BackupUseCase {
	return &backupUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (b *backupUseCaseWithMetrics) Create(
	ctx context.Context,
	createdBy string,
	query credentialDomain.Query,
) (*credentialDomain.BackupMetadata, error) {
	start := time.Now()
	metadata, err := b.next.Create(ctx, createdBy, query)
	observe(ctx, b.metrics, backupsDomain, "backup_create", start, err)
	if metadata != nil {
		b.metrics.RecordCredentials(ctx, backupsDomain, "backup_create", metadata.CredentialCount)
	}
	return metadata, err
}

func (b *backupUseCaseWithMetrics) List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error) {
	start := time.Now()
	backups, err := b.next.List(ctx)
	observe(ctx, b.metrics, backupsDomain, "backup_list", start, err)
	return backups, err
}

func (b *backupUseCaseWithMetrics) Restore(ctx context.Context, backupID string, opts RestoreOptions) (int, error) {
	start := time.Now()
	count, err := b.next.Restore(ctx, backupID, opts)
	observe(ctx, b.metrics, backupsDomain, "backup_restore", start, err)
	b.metrics.RecordCredentials(ctx, backupsDomain, "backup_restore", count)
	return count, err
}
