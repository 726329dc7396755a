package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// PostgreSQLCredentialRepository implements the credential storage backend for PostgreSQL.
// Conflicting writes are detected with the revision column.
type PostgreSQLCredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Read retrieves a credential by id.
func (p *PostgreSQLCredentialRepository) Read(
	ctx context.Context,
	id string,
) (*credentialDomain.StoredCredential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

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
func (p *PostgreSQLCredentialRepository) Write(ctx context.Context, cred *credentialDomain.StoredCredential) error {
	querier := database.GetTx(ctx, p.db)

	row, err := encodeCredential(cred)
	if err != nil {
		return err
	}

	if cred.Revision == 0 {
		query := `INSERT INTO credentials (` + credentialColumns + `)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

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
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return credentialDomain.ErrConcurrentModification
			}
			return apperrors.Wrap(err, "failed to create credential")
		}
		cred.Revision = 1
		return nil
	}

	query := `UPDATE credentials
			  SET vendor_id = $1, type = $2, encrypted_data = $3, iv = $4, auth_tag = $5, salt = $6,
			      encryption_version = $7, key_iterations = $8, label = $9, is_active = $10,
			      access_count = $11, updated_at = $12, expires_at = $13, last_accessed_at = $14,
			      custom = $15, revision = revision + 1
			  WHERE id = $16 AND revision = $17`

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
func (p *PostgreSQLCredentialRepository) Delete(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete credential")
	}
	return deleted(result)
}

// List retrieves the matching credentials ordered by creation time.
func (p *PostgreSQLCredentialRepository) List(
	ctx context.Context,
	q credentialDomain.Query,
) ([]*credentialDomain.StoredCredential, error) {
	querier := database.GetTx(ctx, p.db)

	query, args := buildListQuery(q, p.now(), postgresPlaceholder)
	return listCredentials(ctx, querier, query, args)
}

// Exists reports whether a credential with id is stored.
func (p *PostgreSQLCredentialRepository) Exists(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	var exists bool
	err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM credentials WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check credential")
	}
	return exists, nil
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db, now: time.Now}
}

func applyRevision(result sql.Result, cred *credentialDomain.StoredCredential) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return credentialDomain.ErrConcurrentModification
	}
	cred.Revision++
	return nil
}

func deleted(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected > 0, nil
}

func listCredentials(
	ctx context.Context,
	querier database.Querier,
	query string,
	args []any,
) ([]*credentialDomain.StoredCredential, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() {
		_ = rows.Close()
	}()

	creds := make([]*credentialDomain.StoredCredential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credentials")
	}
	return creds, nil
}
