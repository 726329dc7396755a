package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// MasterKeySource describes where the process master key comes from. Exactly one of
// Raw or Passphrase must be set.
type MasterKeySource struct {
	// Raw is the base64-encoded 32-byte master key.
	Raw string
	// Passphrase derives the master key (or, with Wrapped, the key that unwraps it).
	Passphrase string
	// Salt is the base64-encoded PBKDF2 salt for Passphrase.
	Salt string
	// Wrapped is an optional WrappedKey.String() encoding of the master key.
	Wrapped string
	// Iterations overrides DefaultMasterKeyIterations when positive.
	Iterations int
}

// LoadMasterKey resolves src into a sealed MasterKey. Every intermediate buffer is erased.
func LoadMasterKey(src MasterKeySource, kd KeyDerivation) (*cryptoDomain.MasterKey, error) {
	switch {
	case src.Raw != "" && src.Passphrase != "":
		return nil, fmt.Errorf(
			"%w: MASTER_KEY and MASTER_KEY_PASSPHRASE are mutually exclusive",
			cryptoDomain.ErrInvalidMasterKeyEncoding,
		)
	case src.Raw != "":
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(src.Raw))
		if err != nil {
			return nil, cryptoDomain.ErrInvalidMasterKeyEncoding
		}
		return cryptoDomain.NewMasterKey(key)
	case src.Passphrase != "":
		return loadFromPassphrase(src, kd)
	default:
		return nil, cryptoDomain.ErrMasterKeyNotConfigured
	}
}

func loadFromPassphrase(src MasterKeySource, kd KeyDerivation) (*cryptoDomain.MasterKey, error) {
	salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(src.Salt))
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: MASTER_KEY_SALT must be non-empty base64", cryptoDomain.ErrInvalidSalt)
	}

	passphrase := []byte(src.Passphrase)
	defer cryptoDomain.SecureErase(passphrase)

	derived, err := kd.MasterKeyFromPassword(passphrase, salt, src.Iterations)
	if err != nil {
		return nil, err
	}

	if src.Wrapped == "" {
		return cryptoDomain.NewMasterKey(derived)
	}
	defer cryptoDomain.SecureErase(derived)

	wrapped, err := cryptoDomain.ParseWrappedKey(src.Wrapped)
	if err != nil {
		return nil, err
	}

	key, err := kd.UnwrapKey(wrapped, derived)
	if err != nil {
		return nil, err
	}
	return cryptoDomain.NewMasterKey(key)
}
