package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// PostgreSQLAuditLogRepository implements audit persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// Create inserts entry. Empty optional strings and a nil context are stored as NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, p.db)

	contextJSON, err := marshalContext(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + auditColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.Timestamp,
		string(entry.Action),
		nullIfEmpty(entry.CredentialID),
		entry.ActorUserID,
		entry.TargetUserID,
		nullIfEmpty(entry.VendorID),
		nullIfEmpty(entry.IPAddress),
		nullIfEmpty(entry.UserAgent),
		entry.Success,
		nullIfEmpty(entry.ErrorMessage),
		contextJSON,
		entry.Signature,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List retrieves matching entries ordered by created_at descending (newest first).
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, p.db)

	query, args := buildListQuery(opts, postgresPlaceholder)
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.Entry, 0)
	for rows.Next() {
		var entry auditDomain.Entry
		if err := scanEntry(rows, &entry, func(dest *auditDomain.Entry) any { return &dest.ID }, nil); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return entries, nil
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// marshalContext returns the JSON text of c, or nil for SQL NULL.
func marshalContext(c map[string]any) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log context")
	}
	return string(b), nil
}

// scanEntry reads one audit row. idDest returns the scan destination for the id column;
// afterScan, when set, converts that destination into entry.ID.
func scanEntry(
	rows *sql.Rows,
	entry *auditDomain.Entry,
	idDest func(*auditDomain.Entry) any,
	afterScan func() error,
) error {
	var action string
	var credentialID, vendorID, ipAddress, userAgent, errorMessage sql.NullString
	var contextJSON []byte

	err := rows.Scan(
		idDest(entry),
		&entry.Timestamp,
		&action,
		&credentialID,
		&entry.ActorUserID,
		&entry.TargetUserID,
		&vendorID,
		&ipAddress,
		&userAgent,
		&entry.Success,
		&errorMessage,
		&contextJSON,
		&entry.Signature,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to scan audit log")
	}
	if afterScan != nil {
		if err := afterScan(); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal audit log id")
		}
	}

	entry.Timestamp = entry.Timestamp.UTC()
	entry.Action = auditDomain.Action(action)
	entry.CredentialID = credentialID.String
	entry.VendorID = vendorID.String
	entry.IPAddress = ipAddress.String
	entry.UserAgent = userAgent.String
	entry.ErrorMessage = errorMessage.String

	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &entry.Context); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal audit log context")
		}
	}
	return nil
}
