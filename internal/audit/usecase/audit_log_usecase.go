package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	auditService "github.com/allisson/credvault/internal/audit/service"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// auditLogUseCase implements AuditLogUseCase.
type auditLogUseCase struct {
	repo      AuditLogRepository
	signer    auditService.AuditSigner
	masterKey *cryptoDomain.MasterKey
	now       func() time.Time
}

// Log validates the entry, assigns a UUIDv7 id and a UTC timestamp, signs it and appends it.
// Timestamps are truncated to microseconds so they survive a round trip through SQL
// timestamp columns unchanged and signatures stay verifiable.
func (a *auditLogUseCase) Log(ctx context.Context, entry *auditDomain.Entry) error {
	if entry == nil || !entry.Action.Valid() || entry.TargetUserID == "" {
		return auditDomain.ErrInvalidEntry
	}
	if entry.ActorUserID == "" {
		entry.ActorUserID = entry.TargetUserID
	}

	entry.ID = uuid.Must(uuid.NewV7())
	entry.Timestamp = a.now().UTC().Truncate(time.Microsecond)

	err := a.masterKey.Use(func(key []byte) error {
		sig, err := a.signer.Sign(key, entry)
		if err != nil {
			return err
		}
		entry.Signature = sig
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit log")
	}

	if err := a.repo.Create(ctx, entry); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// Query returns matching entries, newest first.
func (a *auditLogUseCase) Query(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	entries, err := a.repo.List(ctx, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return entries, nil
}

// Verify recomputes the signature of every matching entry and reports the ones that no
// longer match their content.
func (a *auditLogUseCase) Verify(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) (*auditDomain.VerificationReport, error) {
	entries, err := a.Query(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &auditDomain.VerificationReport{Total: len(entries), Invalid: make([]uuid.UUID, 0)}
	err = a.masterKey.Use(func(key []byte) error {
		for _, e := range entries {
			if err := a.signer.Verify(key, e); err != nil {
				if apperrors.Is(err, auditDomain.ErrSignatureInvalid) {
					report.Invalid = append(report.Invalid, e.ID)
					continue
				}
				return err
			}
			report.Valid++
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to verify audit logs")
	}
	return report, nil
}

// NewAuditLogUseCase creates an AuditLogUseCase that signs entries with a key derived from
// masterKey.
func NewAuditLogUseCase(
	repo AuditLogRepository,
	signer auditService.AuditSigner,
	masterKey *cryptoDomain.MasterKey,
) AuditLogUseCase {
	return &auditLogUseCase{
		repo:      repo,
		signer:    signer,
		masterKey: masterKey,
		now:       time.Now,
	}
}
