// Package service implements the credential vault's cryptographic engine: AES-GCM
// authenticated encryption and the PBKDF2 key derivation hierarchy
// (master key → user key → credential key).
package service

import (
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// EncryptionEngine performs authenticated encryption of opaque byte payloads.
type EncryptionEngine interface {
	// Encrypt encrypts plaintext under key with a freshly generated IV.
	Encrypt(plaintext, key []byte) (cryptoDomain.EncryptedPayload, error)

	// Decrypt authenticates and decrypts payload under key.
	Decrypt(payload cryptoDomain.EncryptedPayload, key []byte) ([]byte, error)

	// GenerateKey returns bits/8 cryptographically secure random bytes.
	GenerateKey(bits int) ([]byte, error)

	// GenerateSalt returns a random salt. A non-positive length uses the configured length.
	GenerateSalt(length int) ([]byte, error)

	// GenerateID returns a hex-encoded random identifier built from length random bytes.
	GenerateID(length int) (string, error)
}

// KeyDerivation turns the master key into per-user, per-credential and per-version keys.
type KeyDerivation interface {
	// DeriveUserKey derives the key for userID. A nil salt generates a new one.
	DeriveUserKey(
		masterKey *cryptoDomain.MasterKey,
		userID string,
		salt []byte,
		iterations int,
	) (cryptoDomain.DerivedKey, error)

	// DeriveCredentialKey derives the key for credentialID below a user key.
	DeriveCredentialKey(userKey []byte, credentialID string, salt []byte, iterations int) ([]byte, error)

	// DeriveVersionedKey derives the rotation-epoch key for version from currentKey.
	DeriveVersionedKey(currentKey []byte, version int, salt []byte) ([]byte, error)

	// DeriveRecordKey runs the full schedule for one stored record.
	DeriveRecordKey(
		masterKey *cryptoDomain.MasterKey,
		userID, credentialID string,
		salt []byte,
		iterations, version int,
	) ([]byte, error)

	// WrapKey encrypts keyToWrap under a 32-byte key-encrypting key.
	WrapKey(keyToWrap, wrappingKey []byte) (cryptoDomain.WrappedKey, error)

	// UnwrapKey recovers a key produced by WrapKey.
	UnwrapKey(wrapped cryptoDomain.WrappedKey, wrappingKey []byte) ([]byte, error)

	// VerifyDerivedKey compares two keys in constant time.
	VerifyDerivedKey(derived, expected []byte) bool

	// MasterKeyFromPassword derives a 32-byte master key from an operator passphrase.
	MasterKeyFromPassword(password, salt []byte, iterations int) ([]byte, error)
}
