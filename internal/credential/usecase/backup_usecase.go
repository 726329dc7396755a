package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// backupUseCase implements BackupUseCase.
type backupUseCase struct {
	auditor
	storage   StorageBackend
	backups   BackupRepository
	txManager database.TxManager
	now       func() time.Time
}

// Create writes the matching records, still encrypted, into a new checksummed bundle.
func (b *backupUseCase) Create(
	ctx context.Context,
	createdBy string,
	query credentialDomain.Query,
) (*credentialDomain.BackupMetadata, error) {
	if createdBy == "" {
		info, _ := auditDomain.RequestInfoFromContext(ctx)
		createdBy = info.ActorUserID
	}
	ev := &auditEvent{
		action:      auditDomain.ActionBackupCreated,
		actorUserID: createdBy,
		userID:      query.UserID,
		vendorID:    query.VendorID,
	}

	metadata, err := func() (*credentialDomain.BackupMetadata, error) {
		creds, err := b.storage.List(ctx, query)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list credentials")
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to generate backup id")
		}
		ev.set("backupId", id.String())

		bundle, err := credentialDomain.NewBackupBundle(id.String(), createdBy, creds, b.now().UTC())
		if err != nil {
			return nil, err
		}
		ev.set("credentialCount", bundle.Metadata.CredentialCount)

		if err := b.backups.Save(ctx, bundle); err != nil {
			return nil, apperrors.Wrap(err, "failed to save backup")
		}
		return &bundle.Metadata, nil
	}()

	if err := b.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return metadata, nil
}

// List returns the metadata of every stored backup.
func (b *backupUseCase) List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error) {
	backups, err := b.backups.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list backups")
	}
	return backups, nil
}

// Restore writes the records of a backup back to storage. The checksum and every record
// are verified before the first write, and existing records are only replaced with
// Overwrite. All writes share one transaction.
func (b *backupUseCase) Restore(ctx context.Context, backupID string, opts RestoreOptions) (int, error) {
	ev := &auditEvent{action: auditDomain.ActionBackupRestored}
	ev.set("backupId", backupID)
	ev.set("overwrite", opts.Overwrite)

	restored, err := b.restore(ctx, backupID, opts)
	ev.set("restored", restored)

	if err := b.record(ctx, ev, err); err != nil {
		return 0, err
	}
	b.logger.Info("backup restored", slog.String("backup_id", backupID), slog.Int("count", restored))
	return restored, nil
}

func (b *backupUseCase) restore(ctx context.Context, backupID string, opts RestoreOptions) (int, error) {
	bundle, err := b.backups.Load(ctx, backupID)
	if err != nil {
		return 0, err
	}
	if err := bundle.Verify(); err != nil {
		return 0, err
	}

	records, err := bundle.Records()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := credentialDomain.ValidateRecord(r); err != nil {
			return 0, err
		}
		if _, dup := seen[r.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate record %s", credentialDomain.ErrInvalidBackup, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	err = b.txManager.WithTx(ctx, func(ctx context.Context) error {
		// Resolve every conflict before writing so a rejected restore writes nothing.
		for _, r := range records {
			existing, err := b.storage.Read(ctx, r.ID)
			switch {
			case apperrors.Is(err, credentialDomain.ErrCredentialNotFound):
				r.Revision = 0
			case err != nil:
				return apperrors.Wrap(err, "failed to read credential")
			case !opts.Overwrite:
				return fmt.Errorf("%w: %s", credentialDomain.ErrCredentialAlreadyExists, r.ID)
			default:
				r.Revision = existing.Revision
			}
		}

		for _, r := range records {
			if err := b.storage.Write(ctx, r); err != nil {
				return apperrors.Wrap(err, "failed to restore credential")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// NewBackupUseCase creates a BackupUseCase. txManager scopes the writes of a restore.
func NewBackupUseCase(
	storage StorageBackend,
	backups BackupRepository,
	audit AuditLogger,
	txManager database.TxManager,
	logger *slog.Logger,
) BackupUseCase {
	return &backupUseCase{
		auditor:   auditor{audit: audit, logger: logger},
		storage:   storage,
		backups:   backups,
		txManager: txManager,
		now:       time.Now,
	}
}
