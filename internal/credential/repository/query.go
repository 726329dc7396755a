// Package repository provides the credential storage backends (PostgreSQL, MySQL and
// process memory) and the blob-bucket backup store.
package repository

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
)

const credentialColumns = `id, user_id, vendor_id, type, encrypted_data, iv, auth_tag, salt,
	encryption_version, key_iterations, label, is_active, access_count, created_at, updated_at,
	expires_at, last_accessed_at, custom, revision`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// credentialRow is the column encoding of a StoredCredential. Binary fields are stored as
// standard base64 text.
type credentialRow struct {
	encryptedData  string
	iv             string
	authTag        string
	salt           string
	label          any
	expiresAt      any
	lastAccessedAt any
	custom         any
}

func encodeCredential(c *credentialDomain.StoredCredential) (credentialRow, error) {
	row := credentialRow{
		encryptedData:  base64.StdEncoding.EncodeToString(c.EncryptedData),
		iv:             base64.StdEncoding.EncodeToString(c.IV),
		authTag:        base64.StdEncoding.EncodeToString(c.AuthTag),
		salt:           base64.StdEncoding.EncodeToString(c.Salt),
		label:          nullIfEmpty(c.Metadata.Label),
		expiresAt:      nullTime(c.Metadata.ExpiresAt),
		lastAccessedAt: nullTime(c.Metadata.LastAccessedAt),
	}

	if c.Metadata.Custom != nil {
		b, err := json.Marshal(c.Metadata.Custom)
		if err != nil {
			return credentialRow{}, apperrors.Wrap(err, "failed to marshal custom metadata")
		}
		row.custom = string(b)
	}
	return row, nil
}

func scanCredential(s scanner) (*credentialDomain.StoredCredential, error) {
	var c credentialDomain.StoredCredential
	var credType, encryptedData, iv, authTag, salt string
	var label sql.NullString
	var expiresAt, lastAccessedAt sql.NullTime
	var custom []byte

	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.VendorID,
		&credType,
		&encryptedData,
		&iv,
		&authTag,
		&salt,
		&c.EncryptionVersion,
		&c.KeyIterations,
		&label,
		&c.Metadata.IsActive,
		&c.Metadata.AccessCount,
		&c.Metadata.CreatedAt,
		&c.Metadata.UpdatedAt,
		&expiresAt,
		&lastAccessedAt,
		&custom,
		&c.Revision,
	)
	if err != nil {
		return nil, err
	}

	c.Type = credentialDomain.Type(credType)
	c.Metadata.Label = label.String
	c.Metadata.CreatedAt = c.Metadata.CreatedAt.UTC()
	c.Metadata.UpdatedAt = c.Metadata.UpdatedAt.UTC()
	c.Metadata.ExpiresAt = timePtr(expiresAt)
	c.Metadata.LastAccessedAt = timePtr(lastAccessedAt)

	for _, field := range []struct {
		dest *[]byte
		text string
	}{
		{&c.EncryptedData, encryptedData},
		{&c.IV, iv},
		{&c.AuthTag, authTag},
		{&c.Salt, salt},
	} {
		if *field.dest, err = base64.StdEncoding.DecodeString(field.text); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode credential")
		}
	}

	if custom != nil {
		if err := json.Unmarshal(custom, &c.Metadata.Custom); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal custom metadata")
		}
	}
	return &c, nil
}

// buildListQuery renders the filtered credential query. placeholder returns the bind marker
// for the n-th (1-based) argument.
func buildListQuery(
	q credentialDomain.Query,
	now time.Time,
	placeholder func(n int) string,
) (string, []any) {
	var conditions []string
	var args []any

	bind := func(value any) string {
		args = append(args, value)
		return placeholder(len(args))
	}

	if q.UserID != "" {
		conditions = append(conditions, "user_id = "+bind(q.UserID))
	}
	if q.VendorID != "" {
		conditions = append(conditions, "vendor_id = "+bind(q.VendorID))
	}
	if q.Type != "" {
		conditions = append(conditions, "type = "+bind(string(q.Type)))
	}
	if q.IsActive != nil {
		conditions = append(conditions, "is_active = "+bind(*q.IsActive))
	}
	if q.ExcludeExpired {
		conditions = append(conditions, "(expires_at IS NULL OR expires_at > "+bind(now.UTC())+")")
	}

	query := "SELECT " + credentialColumns + " FROM credentials"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %s OFFSET %s", bind(limit), bind(q.Offset))
	return query, args
}

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func mysqlPlaceholder(int) string { return "?" }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
