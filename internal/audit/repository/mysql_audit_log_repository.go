package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// MySQLAuditLogRepository implements audit persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// Create inserts entry. Empty optional strings and a nil context are stored as NULL.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, m.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}

	contextJSON, err := marshalContext(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + auditColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
// UUIDs are stored as BINARY(16) and unmarshaled on read.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, m.db)

	query, args := buildListQuery(opts, mysqlPlaceholder)
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
		var idBinary []byte
		err := scanEntry(
			rows,
			&entry,
			func(*auditDomain.Entry) any { return &idBinary },
			func() error { return entry.ID.UnmarshalBinary(idBinary) },
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return entries, nil
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}
