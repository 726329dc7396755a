// Package domain defines the credential vault's data model: the encrypted record that is
// persisted, its transient decrypted form, the tagged credential data variants and the
// inputs and filters of the vault operations.
package domain

import (
	"bytes"
	"maps"
	"time"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// Type tags the kind of secret a credential holds.
type Type string

const (
	TypeAPIKey      Type = "api_key"
	TypeOAuthToken  Type = "oauth_token"
	TypeSecret      Type = "secret"
	TypeCertificate Type = "certificate"
)

// Valid reports whether t is a known credential type.
func (t Type) Valid() bool {
	switch t {
	case TypeAPIKey, TypeOAuthToken, TypeSecret, TypeCertificate:
		return true
	}
	return false
}

// CurrentEncryptionVersion is the version assigned to newly created records.
const CurrentEncryptionVersion = 1

// Metadata is the non-secret bookkeeping stored in clear next to the ciphertext.
type Metadata struct {
	Label          string         `json:"label,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	ExpiresAt      *time.Time     `json:"expiresAt,omitempty"`
	LastAccessedAt *time.Time     `json:"lastAccessedAt,omitempty"`
	AccessCount    int64          `json:"accessCount"`
	IsActive       bool           `json:"isActive"`
	Custom         map[string]any `json:"custom,omitempty"`
}

// IsExpired reports whether the metadata carries an expiry at or before now.
func (m Metadata) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// StoredCredential is the persisted, encrypted record. EncryptedData, IV, AuthTag and Salt
// are produced together and are only ever replaced together; encoding/json renders them
// as standard base64.
type StoredCredential struct {
	ID                string   `json:"id"`
	UserID            string   `json:"userId"`
	VendorID          string   `json:"vendorId"`
	Type              Type     `json:"type"`
	EncryptedData     []byte   `json:"encryptedData"`
	IV                []byte   `json:"iv"`
	AuthTag           []byte   `json:"authTag"`
	Salt              []byte   `json:"salt"`
	EncryptionVersion int      `json:"encryptionVersion"`
	KeyIterations     int      `json:"keyIterations,omitempty"`
	Metadata          Metadata `json:"metadata"`

	// Revision is the optimistic-concurrency counter owned by the storage backend.
	// Zero means the record has never been written.
	Revision int64 `json:"-"`
}

// Payload returns the encrypted portion of the record.
func (c *StoredCredential) Payload() cryptoDomain.EncryptedPayload {
	return cryptoDomain.EncryptedPayload{
		Ciphertext: c.EncryptedData,
		IV:         c.IV,
		AuthTag:    c.AuthTag,
	}
}

// SetPayload replaces the ciphertext, IV, auth tag and salt in one step.
func (c *StoredCredential) SetPayload(p cryptoDomain.EncryptedPayload, salt []byte) {
	c.EncryptedData = p.Ciphertext
	c.IV = p.IV
	c.AuthTag = p.AuthTag
	c.Salt = salt
}

// Clone returns a deep copy so callers can mutate a record without touching the original.
func (c *StoredCredential) Clone() *StoredCredential {
	out := *c
	out.EncryptedData = bytes.Clone(c.EncryptedData)
	out.IV = bytes.Clone(c.IV)
	out.AuthTag = bytes.Clone(c.AuthTag)
	out.Salt = bytes.Clone(c.Salt)
	out.Metadata = c.Metadata.clone()
	return &out
}

// Summary returns the record without its encrypted fields.
func (c *StoredCredential) Summary() *Summary {
	return &Summary{
		ID:                c.ID,
		UserID:            c.UserID,
		VendorID:          c.VendorID,
		Type:              c.Type,
		EncryptionVersion: c.EncryptionVersion,
		Metadata:          c.Metadata.clone(),
	}
}

// DecryptedCredential is the in-memory plaintext view of a record. It is never persisted.
type DecryptedCredential struct {
	ID       string
	UserID   string
	VendorID string
	Type     Type
	Data     Data
	Metadata Metadata
}

// Summary is what listing returns: identity, type and metadata but no ciphertext.
type Summary struct {
	ID                string   `json:"id"`
	UserID            string   `json:"userId"`
	VendorID          string   `json:"vendorId"`
	Type              Type     `json:"type"`
	EncryptionVersion int      `json:"encryptionVersion"`
	Metadata          Metadata `json:"metadata"`
}

func (m Metadata) clone() Metadata {
	out := m
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		out.ExpiresAt = &t
	}
	if m.LastAccessedAt != nil {
		t := *m.LastAccessedAt
		out.LastAccessedAt = &t
	}
	out.Custom = maps.Clone(m.Custom)
	return out
}
