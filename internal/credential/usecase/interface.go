// Package usecase implements the credential vault: the lifecycle operations that tie key
// derivation, encryption, storage and auditing together, plus encrypted backup and restore.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

// StorageBackend persists encrypted credential records. Every call is independently atomic.
type StorageBackend interface {
	// Read returns ErrCredentialNotFound when no record has the id.
	Read(ctx context.Context, id string) (*credentialDomain.StoredCredential, error)
	// Write inserts the record when its Revision is zero and otherwise replaces it only if the
	// stored revision still matches, failing with ErrConcurrentModification when it does not.
	// On success the record's Revision is advanced.
	Write(ctx context.Context, credential *credentialDomain.StoredCredential) error
	// Delete reports whether a record existed.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, query credentialDomain.Query) ([]*credentialDomain.StoredCredential, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// AuditLogger appends audit entries. The logger assigns id and timestamp.
type AuditLogger interface {
	Log(ctx context.Context, entry *auditDomain.Entry) error
	Query(ctx context.Context, opts auditDomain.QueryOptions) ([]*auditDomain.Entry, error)
}

// BackupRepository stores backup bundles.
type BackupRepository interface {
	Save(ctx context.Context, bundle *credentialDomain.BackupBundle) error
	// Load returns ErrBackupNotFound when no backup has the id.
	Load(ctx context.Context, id string) (*credentialDomain.BackupBundle, error)
	List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error)
}

// CredentialUseCase is the vault. Every per-credential operation is scoped to userID; a
// record owned by another user is reported as not found. Each call writes exactly one audit
// entry, on failure too.
type CredentialUseCase interface {
	Create(ctx context.Context, input credentialDomain.CreateInput) (*credentialDomain.StoredCredential, error)
	// Read decrypts the credential and records the access.
	//
	// Security Note: the returned Data holds plaintext secrets and must not be logged.
	Read(
		ctx context.Context,
		userID, credentialID string,
		opts credentialDomain.ReadOptions,
	) (*credentialDomain.DecryptedCredential, error)
	Update(
		ctx context.Context,
		userID, credentialID string,
		input credentialDomain.UpdateInput,
	) (*credentialDomain.StoredCredential, error)
	Delete(ctx context.Context, userID, credentialID string) (bool, error)
	Deactivate(ctx context.Context, userID, credentialID string) (*credentialDomain.StoredCredential, error)
	Reactivate(ctx context.Context, userID, credentialID string) (*credentialDomain.StoredCredential, error)
	// Rotate re-encrypts the credential under the key of the next encryption version.
	Rotate(ctx context.Context, userID, credentialID string) (*credentialDomain.StoredCredential, error)
	// RotateUser rotates every credential of userID. Individual failures are collected in the
	// report rather than aborting the batch.
	RotateUser(ctx context.Context, userID string) (*credentialDomain.RotationReport, error)
	List(ctx context.Context, query credentialDomain.Query) ([]*credentialDomain.Summary, error)
	// DeactivateExpired deactivates every active credential whose expiry has passed and
	// returns how many were deactivated.
	DeactivateExpired(ctx context.Context) (int, error)
}

// RestoreOptions tunes a restore.
type RestoreOptions struct {
	// Overwrite replaces credentials that already exist instead of failing with
	// ErrCredentialAlreadyExists.
	Overwrite bool
}

// BackupUseCase creates and restores encrypted backups. Records stay encrypted end to end.
type BackupUseCase interface {
	// Create snapshots the credentials matching query.
	Create(
		ctx context.Context,
		createdBy string,
		query credentialDomain.Query,
	) (*credentialDomain.BackupMetadata, error)
	List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error)
	// Restore verifies the backup checksum and every record before writing any of them.
	Restore(ctx context.Context, backupID string, opts RestoreOptions) (int, error)
}
