package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// MySQLCredentialRepository implements the credential storage backend for MySQL.
// The DSN must set parseTime=true.
type MySQLCredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Read retrieves a credential by id.
func (m *MySQLCredentialRepository) Read(
	ctx context.Context,
	id string,
) (*credentialDomain.StoredCredential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`

	cred, err := scanCredential(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credentialDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}
	return cred, nil
}

// Write inserts a new credential (Revision zero) or replaces the stored one if its revision
// still matches.
func (m *MySQLCredentialRepository) Write(ctx context.Context, cred *credentialDomain.StoredCredential) error {
	querier := database.GetTx(ctx, m.db)

	row, err := encodeCredential(cred)
	if err != nil {
		return err
	}

	if cred.Revision == 0 {
		query := `INSERT INTO credentials (` + credentialColumns + `)
				  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := querier.ExecContext(
			ctx,
			query,
			cred.ID,
			cred.UserID,
			cred.VendorID,
			string(cred.Type),
			row.encryptedData,
			row.iv,
			row.authTag,
			row.salt,
			cred.EncryptionVersion,
			cred.KeyIterations,
			row.label,
			cred.Metadata.IsActive,
			cred.Metadata.AccessCount,
			cred.Metadata.CreatedAt.UTC(),
			cred.Metadata.UpdatedAt.UTC(),
			row.expiresAt,
			row.lastAccessedAt,
			row.custom,
			1,
		)
		if err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return credentialDomain.ErrConcurrentModification
			}
			return apperrors.Wrap(err, "failed to create credential")
		}
		cred.Revision = 1
		return nil
	}

	query := `UPDATE credentials
			  SET vendor_id = ?, type = ?, encrypted_data = ?, iv = ?, auth_tag = ?, salt = ?,
			      encryption_version = ?, key_iterations = ?, label = ?, is_active = ?,
			      access_count = ?, updated_at = ?, expires_at = ?, last_accessed_at = ?,
			      custom = ?, revision = revision + 1
			  WHERE id = ? AND revision = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		cred.VendorID,
		string(cred.Type),
		row.encryptedData,
		row.iv,
		row.authTag,
		row.salt,
		cred.EncryptionVersion,
		cred.KeyIterations,
		row.label,
		cred.Metadata.IsActive,
		cred.Metadata.AccessCount,
		cred.Metadata.UpdatedAt.UTC(),
		row.expiresAt,
		row.lastAccessedAt,
		row.custom,
		cred.ID,
		cred.Revision,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}
	return applyRevision(result, cred)
}

// Delete removes a credential and reports whether it existed.
func (m *MySQLCredentialRepository) Delete(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete credential")
	}
	return deleted(result)
}

// List retrieves the matching credentials ordered by creation time.
func (m *MySQLCredentialRepository) List(
	ctx context.Context,
	q credentialDomain.Query,
) ([]*credentialDomain.StoredCredential, error) {
	querier := database.GetTx(ctx, m.db)

	query, args := buildListQuery(q, m.now(), mysqlPlaceholder)
	return listCredentials(ctx, querier, query, args)
}

// Exists reports whether a credential with id is stored.
func (m *MySQLCredentialRepository) Exists(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	var exists bool
	err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM credentials WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check credential")
	}
	return exists, nil
}

// NewMySQLCredentialRepository creates a new MySQL credential repository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db, now: time.Now}
}
