package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// AESGCMCipher performs AES-GCM with a configurable IV length.
//
// The key size selects AES-128, AES-192 or AES-256. The IV length defaults to 16 bytes
// rather than the GCM-native 12 so records stay readable by existing deployments; GCM
// accepts any non-zero nonce size through NewGCMWithNonceSize.
//
// The cipher is stateless and safe for concurrent use. Every Seal call draws a fresh IV
// from crypto/rand, so an IV is never reused under the same key.
type AESGCMCipher struct {
	aead     cipher.AEAD
	ivLength int
}

// NewAESGCM creates a cipher for key. The caller is responsible for checking the key
// length against the configured key size before calling this.
func NewAESGCM(key []byte, ivLength int) (*AESGCMCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidKeyLength, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead, ivLength: ivLength}, nil
}

// Seal encrypts plaintext under a freshly generated IV and splits the authentication
// tag off the GCM output.
func (a *AESGCMCipher) Seal(plaintext []byte) (cryptoDomain.EncryptedPayload, error) {
	iv := make([]byte, a.ivLength)
	if _, err := rand.Read(iv); err != nil {
		return cryptoDomain.EncryptedPayload{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := a.aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - a.aead.Overhead()

	return cryptoDomain.EncryptedPayload{
		Ciphertext: sealed[:tagStart:tagStart],
		IV:         iv,
		AuthTag:    sealed[tagStart:],
	}, nil
}

// Open authenticates and decrypts payload. Every failure, including a malformed IV or tag,
// is reported as ErrDecryptionFailed.
func (a *AESGCMCipher) Open(payload cryptoDomain.EncryptedPayload) ([]byte, error) {
	// aead.Open panics on a nonce of the wrong size.
	if len(payload.IV) != a.ivLength || len(payload.AuthTag) != a.aead.Overhead() {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+len(payload.AuthTag))
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.AuthTag...)

	plaintext, err := a.aead.Open(nil, payload.IV, sealed, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
