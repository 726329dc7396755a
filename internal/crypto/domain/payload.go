package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncryptedPayload is the output of a single authenticated encryption call. The three parts
// are only meaningful together and are never replaced individually.
type EncryptedPayload struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// WrappedKey is a key encrypted under a key-encrypting key.
type WrappedKey struct {
	WrappedKey []byte
	IV         []byte
	AuthTag    []byte
}

// String encodes the wrapped key as "iv.authTag.wrappedKey" with each part in standard
// base64. This is the form accepted by ParseWrappedKey and used for MASTER_KEY_WRAPPED.
func (w WrappedKey) String() string {
	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(w.IV),
		base64.StdEncoding.EncodeToString(w.AuthTag),
		base64.StdEncoding.EncodeToString(w.WrappedKey),
	}, ".")
}

// ParseWrappedKey decodes the output of WrappedKey.String.
func ParseWrappedKey(s string) (WrappedKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return WrappedKey{}, fmt.Errorf("%w: expected 3 parts, got %d", ErrInvalidMasterKeyEncoding, len(parts))
	}

	decoded := make([][]byte, len(parts))
	for i, p := range parts {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil || len(b) == 0 {
			return WrappedKey{}, fmt.Errorf("%w: part %d is not valid base64", ErrInvalidMasterKeyEncoding, i)
		}
		decoded[i] = b
	}

	return WrappedKey{IV: decoded[0], AuthTag: decoded[1], WrappedKey: decoded[2]}, nil
}

// DerivedKey is the result of a user-level key derivation. Key is secret and must be
// erased by the caller; Salt and Iterations are the persisted, non-secret inputs that
// reproduce it.
type DerivedKey struct {
	Key        []byte
	Salt       []byte
	Iterations int
}

// Erase wipes the key material.
func (d *DerivedKey) Erase() {
	SecureErase(d.Key)
}
