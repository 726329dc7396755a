// Package domain defines the audit trail of the credential vault: append-only entries,
// their query filters and the request provenance carried through context.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/errors"
)

// Action names what an audit entry records.
type Action string

const (
	ActionCredentialCreated     Action = "credential_created"
	ActionCredentialAccessed    Action = "credential_accessed"
	ActionCredentialUpdated     Action = "credential_updated"
	ActionCredentialDeleted     Action = "credential_deleted"
	ActionCredentialRotated     Action = "credential_rotated"
	ActionCredentialDeactivated Action = "credential_deactivated"
	ActionCredentialReactivated Action = "credential_reactivated"
	ActionCredentialListed      Action = "credential_listed"
	ActionBackupCreated         Action = "backup_created"
	ActionBackupRestored        Action = "backup_restored"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCredentialCreated, ActionCredentialAccessed, ActionCredentialUpdated,
		ActionCredentialDeleted, ActionCredentialRotated, ActionCredentialDeactivated,
		ActionCredentialReactivated, ActionCredentialListed, ActionBackupCreated,
		ActionBackupRestored:
		return true
	}
	return false
}

// Entry is an immutable audit fact. ID, Timestamp and Signature are assigned by the logger;
// everything else is supplied by the caller and must never contain secret material.
type Entry struct {
	ID           uuid.UUID
	Timestamp    time.Time
	Action       Action
	CredentialID string
	ActorUserID  string
	TargetUserID string
	VendorID     string
	IPAddress    string
	UserAgent    string
	Success      bool
	ErrorMessage string
	Context      map[string]any
	Signature    []byte
}

// QueryOptions filters an audit query. Zero values do not filter; date bounds are inclusive.
type QueryOptions struct {
	CredentialID string
	ActorUserID  string
	TargetUserID string
	Action       Action
	Success      *bool
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// DefaultQueryLimit applies when QueryOptions.Limit is not positive.
const DefaultQueryLimit = 100

// Matches reports whether e passes every filter except pagination.
func (q QueryOptions) Matches(e *Entry) bool {
	switch {
	case q.CredentialID != "" && e.CredentialID != q.CredentialID:
		return false
	case q.ActorUserID != "" && e.ActorUserID != q.ActorUserID:
		return false
	case q.TargetUserID != "" && e.TargetUserID != q.TargetUserID:
		return false
	case q.Action != "" && e.Action != q.Action:
		return false
	case q.Success != nil && e.Success != *q.Success:
		return false
	case q.StartDate != nil && e.Timestamp.Before(*q.StartDate):
		return false
	case q.EndDate != nil && e.Timestamp.After(*q.EndDate):
		return false
	}
	return true
}

// EffectiveLimit returns Limit, or DefaultQueryLimit when Limit is not positive.
func (q QueryOptions) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// VerificationReport is the outcome of checking audit entry signatures.
type VerificationReport struct {
	Total   int
	Valid   int
	Invalid []uuid.UUID
}

// RequestInfo is the provenance of the request driving a vault operation.
type RequestInfo struct {
	ActorUserID string
	IPAddress   string
	UserAgent   string
}

type requestInfoKey struct{}

// WithRequestInfo returns a context carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the RequestInfo stored in ctx, if any.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// Audit-specific error definitions.
var (
	// ErrSignatureInvalid indicates an audit entry whose signature does not match its content.
	ErrSignatureInvalid = errors.Wrap(errors.ErrIntegrity, "audit log signature invalid")

	// ErrInvalidEntry indicates an entry missing its action or target user.
	ErrInvalidEntry = errors.Wrap(errors.ErrInvalidInput, "invalid audit log entry")
)
