package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// allUsers is the audit target of operations that are not scoped to a single user.
const allUsers = "*"

// auditEvent accumulates the audit fields of one operation while it runs.
type auditEvent struct {
	action       auditDomain.Action
	actorUserID  string
	userID       string
	credentialID string
	vendorID     string
	context      map[string]any
}

func (e *auditEvent) set(key string, value any) {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
}

// auditErrorMessages maps known failures to the messages written to the audit trail. The
// first match wins, so more specific errors come first.
var auditErrorMessages = []struct {
	err     error
	message string
}{
	{credentialDomain.ErrCredentialExpired, "credential expired"},
	{credentialDomain.ErrCredentialNotFound, "credential not found"},
	{credentialDomain.ErrCredentialAlreadyExists, "credential already exists"},
	{credentialDomain.ErrConcurrentModification, "concurrent modification"},
	{credentialDomain.ErrInvalidStateTransition, "invalid state transition"},
	{credentialDomain.ErrCredentialTypeMismatch, "credential type mismatch"},
	{credentialDomain.ErrRotationVerificationFailed, "rotation key verification failed"},
	{credentialDomain.ErrInvalidCredentialType, "invalid credential type"},
	{credentialDomain.ErrInvalidCredentialData, "invalid credential data"},
	{credentialDomain.ErrSecretInMetadata, "custom metadata must not contain secrets"},
	{credentialDomain.ErrChecksumMismatch, "backup checksum mismatch"},
	{credentialDomain.ErrUnsupportedBackupVersion, "unsupported backup version"},
	{credentialDomain.ErrInvalidBackup, "invalid backup"},
	{credentialDomain.ErrBackupNotFound, "backup not found"},
	{cryptoDomain.ErrDecryptionFailed, "decryption failed"},
	{cryptoDomain.ErrInvalidKeyLength, "invalid key length"},
	{cryptoDomain.ErrInvalidSalt, "invalid salt"},
	{cryptoDomain.ErrInvalidKeyVersion, "invalid key version"},
	{cryptoDomain.ErrMasterKeyDestroyed, "master key unavailable"},
	{cryptoDomain.ErrMasterKeyNotConfigured, "master key unavailable"},
	{context.Canceled, "operation cancelled"},
	{context.DeadlineExceeded, "operation timed out"},
	{apperrors.ErrInvalidInput, "invalid input"},
	{apperrors.ErrNotFound, "not found"},
	{apperrors.ErrConflict, "conflict"},
	{apperrors.ErrIntegrity, "integrity check failed"},
}

// auditErrorMessage returns a message for err that never carries driver text or secrets.
func auditErrorMessage(err error) string {
	for _, m := range auditErrorMessages {
		if apperrors.Is(err, m.err) {
			return m.message
		}
	}
	return "internal error"
}

// auditor writes the single audit entry that closes every vault operation.
type auditor struct {
	audit  AuditLogger
	logger *slog.Logger
}

// record writes the audit entry for ev and returns opErr, joined with the audit failure if
// the entry could not be written. The entry is written even when ctx is already cancelled.
func (a *auditor) record(ctx context.Context, ev *auditEvent, opErr error) error {
	info, _ := auditDomain.RequestInfoFromContext(ctx)

	target := ev.userID
	if target == "" {
		target = allUsers
	}
	actor := ev.actorUserID
	if actor == "" {
		actor = info.ActorUserID
	}

	entry := &auditDomain.Entry{
		Action:       ev.action,
		CredentialID: ev.credentialID,
		ActorUserID:  actor,
		TargetUserID: target,
		VendorID:     ev.vendorID,
		IPAddress:    info.IPAddress,
		UserAgent:    info.UserAgent,
		Success:      opErr == nil,
		Context:      ev.context,
	}
	if opErr != nil {
		entry.ErrorMessage = auditErrorMessage(opErr)
		a.logger.Warn("credential operation failed",
			slog.String("action", string(ev.action)),
			slog.String("credential_id", ev.credentialID),
			slog.String("user_id", target),
			slog.String("error", entry.ErrorMessage),
		)
	}

	if err := a.audit.Log(context.WithoutCancel(ctx), entry); err != nil {
		a.logger.Error("failed to write audit log",
			slog.String("action", string(ev.action)),
			slog.String("credential_id", ev.credentialID),
			slog.Any("error", err),
		)
		return apperrors.Join(opErr, apperrors.Wrap(err, "failed to write audit log"))
	}
	return opErr
}
