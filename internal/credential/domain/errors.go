package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Credential-specific error definitions.
var (
	// ErrCredentialNotFound indicates the credential does not exist or belongs to another user.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrCredentialExpired indicates an expired credential was requested with expiry filtering
	// enabled. It wraps ErrCredentialNotFound so callers may treat both alike.
	ErrCredentialExpired = errors.Wrap(ErrCredentialNotFound, "credential expired")

	// ErrCredentialAlreadyExists indicates a caller-supplied id is already taken.
	ErrCredentialAlreadyExists = errors.Wrap(errors.ErrConflict, "credential already exists")

	// ErrConcurrentModification indicates the storage backend rejected a write because the
	// record changed since it was read.
	ErrConcurrentModification = errors.Wrap(errors.ErrConflict, "concurrent modification")

	// ErrInvalidStateTransition indicates a deactivate of an inactive credential or a
	// reactivate of an active one.
	ErrInvalidStateTransition = errors.Wrap(errors.ErrConflict, "invalid state transition")

	// ErrCredentialTypeMismatch indicates decrypted data whose tag differs from the record type.
	ErrCredentialTypeMismatch = errors.Wrap(errors.ErrIntegrity, "credential type mismatch")

	// ErrRotationVerificationFailed indicates a freshly derived rotation key could not be reproduced.
	ErrRotationVerificationFailed = errors.Wrap(errors.ErrIntegrity, "rotation key verification failed")

	// ErrInvalidCredentialType indicates an unknown credential type.
	ErrInvalidCredentialType = errors.Wrap(errors.ErrInvalidInput, "invalid credential type")

	// ErrInvalidCredentialData indicates credential data that fails validation.
	ErrInvalidCredentialData = errors.Wrap(errors.ErrInvalidInput, "invalid credential data")

	// ErrSecretInMetadata indicates a custom metadata key that looks like secret material.
	ErrSecretInMetadata = errors.Wrap(errors.ErrInvalidInput, "custom metadata must not contain secrets")

	// ErrChecksumMismatch indicates a backup whose content does not match its checksum.
	ErrChecksumMismatch = errors.Wrap(errors.ErrIntegrity, "backup checksum mismatch")

	// ErrUnsupportedBackupVersion indicates a backup written in an unknown format version.
	ErrUnsupportedBackupVersion = errors.Wrap(errors.ErrInvalidInput, "unsupported backup version")

	// ErrInvalidBackup indicates a structurally invalid backup bundle or record.
	ErrInvalidBackup = errors.Wrap(errors.ErrInvalidInput, "invalid backup")

	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.Wrap(errors.ErrNotFound, "backup not found")
)
