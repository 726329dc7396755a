package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// EncryptionService is the AES-GCM EncryptionEngine. Its configuration is fixed at
// construction and shared by every call.
type EncryptionService struct {
	config cryptoDomain.EncryptionConfig
}

// NewEncryptionService validates config and returns an engine bound to it.
func NewEncryptionService(config cryptoDomain.EncryptionConfig) (*EncryptionService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EncryptionService{config: config}, nil
}

// Config returns the engine configuration.
func (e *EncryptionService) Config() cryptoDomain.EncryptionConfig {
	return e.config
}

func (e *EncryptionService) checkKey(key []byte) error {
	if len(key) != e.config.KeyBytes() {
		return fmt.Errorf(
			"%w: expected %d bytes, got %d",
			cryptoDomain.ErrInvalidKeyLength,
			e.config.KeyBytes(),
			len(key),
		)
	}
	return nil
}

// Encrypt encrypts plaintext under key. The key length is checked before any
// cryptographic work.
func (e *EncryptionService) Encrypt(plaintext, key []byte) (cryptoDomain.EncryptedPayload, error) {
	if err := e.checkKey(key); err != nil {
		return cryptoDomain.EncryptedPayload{}, err
	}

	c, err := NewAESGCM(key, e.config.IVLength)
	if err != nil {
		return cryptoDomain.EncryptedPayload{}, err
	}
	return c.Seal(plaintext)
}

// Decrypt authenticates and decrypts payload under key. A wrong key, a tampered
// ciphertext, a tampered tag and a wrong IV all yield ErrDecryptionFailed.
func (e *EncryptionService) Decrypt(payload cryptoDomain.EncryptedPayload, key []byte) ([]byte, error) {
	if err := e.checkKey(key); err != nil {
		return nil, err
	}

	c, err := NewAESGCM(key, e.config.IVLength)
	if err != nil {
		return nil, err
	}
	return c.Open(payload)
}

// GenerateKey returns a random key of bits/8 bytes.
func (e *EncryptionService) GenerateKey(bits int) ([]byte, error) {
	switch bits {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("%w: unsupported key size %d", cryptoDomain.ErrInvalidKeyLength, bits)
	}
	return randomBytes(bits / 8)
}

// GenerateSalt returns length random bytes, or the configured salt length when length <= 0.
func (e *EncryptionService) GenerateSalt(length int) ([]byte, error) {
	if length <= 0 {
		length = e.config.SaltLength
	}
	return randomBytes(length)
}

// GenerateID returns a hex identifier built from length random bytes
// (cryptoDomain.DefaultIDLength when length <= 0).
func (e *EncryptionService) GenerateID(length int) (string, error) {
	if length <= 0 {
		length = cryptoDomain.DefaultIDLength
	}
	b, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SecureErase zeroes buf. See cryptoDomain.SecureErase.
func (e *EncryptionService) SecureErase(buf []byte) {
	cryptoDomain.SecureErase(buf)
}

// ConstantTimeEqual reports whether a and b are equal. A length mismatch returns false
// straight away; otherwise every byte is compared regardless of where a difference occurs.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
