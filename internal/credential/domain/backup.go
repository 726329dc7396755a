package domain

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// BackupFormatVersion is the bundle format written by this version.
const BackupFormatVersion = 1

// BackupMetadata describes a backup bundle. Checksum is the hex SHA-256 of the compact
// JSON encoding of the credential records.
type BackupMetadata struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	CreatedBy       string    `json:"createdBy"`
	CredentialCount int       `json:"credentialCount"`
	Version         int       `json:"version"`
	Checksum        string    `json:"checksum"`
}

// BackupBundle is the self-describing backup file: still-encrypted records plus metadata.
// Credentials is kept as raw JSON so the checksum is computed over exactly the bytes that
// were written.
type BackupBundle struct {
	Metadata    BackupMetadata  `json:"metadata"`
	Credentials json.RawMessage `json:"credentials"`
}

// NewBackupBundle serializes creds and seals them with a checksum.
func NewBackupBundle(
	id, createdBy string,
	creds []*StoredCredential,
	createdAt time.Time,
) (*BackupBundle, error) {
	if creds == nil {
		creds = []*StoredCredential{}
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup credentials: %w", err)
	}

	return &BackupBundle{
		Metadata: BackupMetadata{
			ID:              id,
			CreatedAt:       createdAt,
			CreatedBy:       createdBy,
			CredentialCount: len(creds),
			Version:         BackupFormatVersion,
			Checksum:        checksum(raw),
		},
		Credentials: raw,
	}, nil
}

// ParseBackupBundle decodes a stored bundle without verifying it.
func ParseBackupBundle(b []byte) (*BackupBundle, error) {
	var bundle BackupBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return &bundle, nil
}

// Verify checks the format version and recomputes the checksum. Whitespace changes to the
// credentials array do not affect the result.
func (b *BackupBundle) Verify() error {
	if b.Metadata.Version != BackupFormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedBackupVersion, b.Metadata.Version)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, b.Credentials); err != nil {
		return ErrChecksumMismatch
	}

	sum := checksum(compact.Bytes())
	if subtle.ConstantTimeCompare([]byte(sum), []byte(b.Metadata.Checksum)) != 1 {
		return ErrChecksumMismatch
	}
	return nil
}

// Records decodes the credential records. Call Verify first.
func (b *BackupBundle) Records() ([]*StoredCredential, error) {
	var creds []*StoredCredential
	if err := json.Unmarshal(b.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if len(creds) != b.Metadata.CredentialCount {
		return nil, fmt.Errorf(
			"%w: metadata declares %d credentials, found %d",
			ErrInvalidBackup,
			b.Metadata.CredentialCount,
			len(creds),
		)
	}
	return creds, nil
}

// ValidateRecord checks that a restored record is structurally complete.
func ValidateRecord(c *StoredCredential) error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: null record", ErrInvalidBackup)
	case c.ID == "" || c.UserID == "" || c.VendorID == "":
		return fmt.Errorf("%w: record missing identifiers", ErrInvalidBackup)
	case !c.Type.Valid():
		return fmt.Errorf("%w: record %s has unknown type", ErrInvalidBackup, c.ID)
	case len(c.IV) == 0 || len(c.AuthTag) == 0 || len(c.Salt) == 0:
		return fmt.Errorf("%w: record %s has incomplete encryption fields", ErrInvalidBackup, c.ID)
	case c.EncryptionVersion < 1:
		return fmt.Errorf("%w: record %s has invalid encryption version", ErrInvalidBackup, c.ID)
	}
	return nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
