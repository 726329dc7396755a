package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so callers
// can branch on the generic condition. Messages are deliberately generic: none of them
// reveal which input was wrong.
var (
	// ErrInvalidKeyLength indicates a key whose length does not match the configured key size.
	//
	// Always detected before any cryptographic work is performed, so a short or long key
	// never reaches the cipher.
	ErrInvalidKeyLength = errors.Wrap(errors.ErrInvalidInput, "invalid key length")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error covers:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with
	//   - Authentication tag has been tampered with
	//   - Wrong or malformed IV
	//
	// The cases are never distinguished so the engine cannot be used as a decryption oracle.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed: invalid key or corrupted data")

	// ErrKeyUnwrapFailed indicates a wrapped key could not be recovered, either because the
	// wrapping key is wrong or because the wrapped material is corrupted.
	ErrKeyUnwrapFailed = errors.Wrap(
		errors.ErrIntegrity,
		"key unwrapping failed: invalid wrapping key or corrupted data",
	)

	// ErrInvalidSalt indicates an empty salt was supplied where one is required.
	ErrInvalidSalt = errors.Wrap(errors.ErrInvalidInput, "invalid salt")

	// ErrInvalidKeyVersion indicates a rotation version outside 1..2^32-1.
	ErrInvalidKeyVersion = errors.Wrap(errors.ErrInvalidInput, "invalid key version")

	// ErrEmptyPassphrase indicates an empty operator passphrase.
	ErrEmptyPassphrase = errors.Wrap(errors.ErrInvalidInput, "passphrase must not be empty")

	// ErrMasterKeyDestroyed indicates the master key handle has already been destroyed.
	ErrMasterKeyDestroyed = errors.New("master key has been destroyed")

	// ErrMasterKeyNotConfigured indicates no master key source was configured.
	ErrMasterKeyNotConfigured = errors.Wrap(
		errors.ErrInvalidInput,
		"master key not configured: set MASTER_KEY or MASTER_KEY_PASSPHRASE",
	)

	// ErrInvalidMasterKeyEncoding indicates the configured master key material is not valid base64.
	ErrInvalidMasterKeyEncoding = errors.Wrap(errors.ErrInvalidInput, "invalid master key encoding")
)
