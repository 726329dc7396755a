// Package domain defines the core cryptographic domain models for the credential vault.
//
// It describes a three-level key hierarchy: Master Key → User Key → Credential Key.
// Only the master key is supplied from outside; every other key is recomputed on demand
// from persisted, non-secret inputs (salt, iteration count, version number).
package domain

import (
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/credvault/internal/errors"
)

const (
	// DefaultKeySize is the AES key size in bits used when none is configured.
	DefaultKeySize = 256

	// DefaultPBKDF2Iterations is the iteration count for per-user and per-credential keys.
	DefaultPBKDF2Iterations = 100000

	// DefaultMasterKeyIterations is the iteration count for deriving a master key from an
	// operator passphrase. It is higher because the result protects every tenant.
	DefaultMasterKeyIterations = 200000

	// VersionedKeyIterations is the fixed iteration count for rotation-epoch keys.
	VersionedKeyIterations = 50000

	// DefaultSaltLength is the salt length in bytes.
	DefaultSaltLength = 32

	// DefaultIVLength is the AES-GCM IV length in bytes.
	DefaultIVLength = 16

	// AuthTagLength is the GCM authentication tag length in bytes.
	AuthTagLength = 16

	// MasterKeyLength is the size in bytes of every master key and key-wrapping key.
	MasterKeyLength = 32

	// DefaultIDLength is the number of random bytes behind a generated identifier
	// (hex-encoded, so identifiers are twice as long).
	DefaultIDLength = 16
)

// EncryptionConfig is the caller-supplied configuration surface of the engine and the
// key derivation hierarchy.
type EncryptionConfig struct {
	// KeySize is the AES key size in bits: 128, 192 or 256.
	KeySize int
	// PBKDF2Iterations is the iteration count for user and credential key derivation.
	PBKDF2Iterations int
	// SaltLength is the length in bytes of generated salts.
	SaltLength int
	// IVLength is the length in bytes of generated IVs.
	IVLength int
}

// DefaultEncryptionConfig returns the recommended configuration: AES-256, 100,000 PBKDF2
// iterations, 32-byte salts and 16-byte IVs.
func DefaultEncryptionConfig() EncryptionConfig {
	return EncryptionConfig{
		KeySize:          DefaultKeySize,
		PBKDF2Iterations: DefaultPBKDF2Iterations,
		SaltLength:       DefaultSaltLength,
		IVLength:         DefaultIVLength,
	}
}

// KeyBytes returns the key length in bytes implied by KeySize.
func (c EncryptionConfig) KeyBytes() int {
	return c.KeySize / 8
}

// Validate checks that the configuration describes a usable AES-GCM setup.
func (c EncryptionConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.KeySize, validation.Required, validation.In(128, 192, 256)),
		validation.Field(&c.PBKDF2Iterations, validation.Required, validation.Min(1)),
		validation.Field(&c.SaltLength, validation.Required, validation.Min(16)),
		validation.Field(&c.IVLength, validation.Required, validation.Min(12)),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}
