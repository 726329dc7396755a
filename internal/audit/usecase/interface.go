// Package usecase implements the audit logger consumed by the credential vault.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
)

// AuditLogRepository persists audit entries. It only ever appends.
type AuditLogRepository interface {
	// Create appends entry.
	Create(ctx context.Context, entry *auditDomain.Entry) error

	// List returns entries matching opts, newest first.
	List(ctx context.Context, opts auditDomain.QueryOptions) ([]*auditDomain.Entry, error)
}

// AuditLogUseCase records and queries the audit trail.
type AuditLogUseCase interface {
	// Log assigns the entry's id, timestamp and signature, then appends it. The caller
	// supplies every other field.
	Log(ctx context.Context, entry *auditDomain.Entry) error

	// Query returns entries matching opts, newest first.
	Query(ctx context.Context, opts auditDomain.QueryOptions) ([]*auditDomain.Entry, error)

	// Verify checks the signature of every entry matching opts.
	Verify(ctx context.Context, opts auditDomain.QueryOptions) (*auditDomain.VerificationReport, error)
}
