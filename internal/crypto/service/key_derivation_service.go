package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// KeyDerivationService implements the three-level key hierarchy with PBKDF2-HMAC-SHA512.
//
// Levels:
//   - user key:       PBKDF2(masterKey || userID, salt, iterations)
//   - credential key: PBKDF2(userKey || credentialID, salt, iterations)
//   - versioned key:  PBKDF2(key || BE32(version), salt, 50000)
//
// Mixing the identifier into the input material means two users (or two credentials) get
// different keys even when they share a salt, while reusing a persisted salt reproduces the
// same key. Every intermediate buffer is erased before return.
type KeyDerivationService struct {
	engine *EncryptionService
}

// NewKeyDerivationService creates a KeyDerivationService that takes key sizes, default
// iterations and salt lengths from engine's configuration.
func NewKeyDerivationService(engine *EncryptionService) *KeyDerivationService {
	return &KeyDerivationService{engine: engine}
}

func (k *KeyDerivationService) iterations(n int) int {
	if n <= 0 {
		return k.engine.config.PBKDF2Iterations
	}
	return n
}

// DeriveUserKey derives the key for userID from the master key. When salt is nil a new
// salt is generated; the returned DerivedKey carries the salt and iteration count to persist.
func (k *KeyDerivationService) DeriveUserKey(
	masterKey *cryptoDomain.MasterKey,
	userID string,
	salt []byte,
	iterations int,
) (cryptoDomain.DerivedKey, error) {
	if masterKey == nil {
		return cryptoDomain.DerivedKey{}, cryptoDomain.ErrMasterKeyNotConfigured
	}

	if salt == nil {
		var err error
		if salt, err = k.engine.GenerateSalt(0); err != nil {
			return cryptoDomain.DerivedKey{}, err
		}
	} else if len(salt) == 0 {
		return cryptoDomain.DerivedKey{}, cryptoDomain.ErrInvalidSalt
	}

	iters := k.iterations(iterations)

	var key []byte
	err := masterKey.Use(func(master []byte) error {
		material := concat(master, []byte(userID))
		defer cryptoDomain.SecureErase(material)

		key = pbkdf2.Key(material, salt, iters, k.engine.config.KeyBytes(), sha512.New)
		return nil
	})
	if err != nil {
		return cryptoDomain.DerivedKey{}, err
	}

	return cryptoDomain.DerivedKey{Key: key, Salt: salt, Iterations: iters}, nil
}

// DeriveCredentialKey derives the key for credentialID below userKey. The result has the
// configured key size.
func (k *KeyDerivationService) DeriveCredentialKey(
	userKey []byte,
	credentialID string,
	salt []byte,
	iterations int,
) ([]byte, error) {
	if len(userKey) == 0 {
		return nil, fmt.Errorf("%w: empty user key", cryptoDomain.ErrInvalidKeyLength)
	}
	if len(salt) == 0 {
		return nil, cryptoDomain.ErrInvalidSalt
	}

	material := concat(userKey, []byte(credentialID))
	defer cryptoDomain.SecureErase(material)

	return pbkdf2.Key(material, salt, k.iterations(iterations), k.engine.config.KeyBytes(), sha512.New), nil
}

// DeriveVersionedKey derives the key for a rotation epoch. Only the version number and the
// salt have to be persisted to reproduce it. The output length equals len(currentKey).
func (k *KeyDerivationService) DeriveVersionedKey(currentKey []byte, version int, salt []byte) ([]byte, error) {
	if len(currentKey) == 0 {
		return nil, fmt.Errorf("%w: empty key", cryptoDomain.ErrInvalidKeyLength)
	}
	if len(salt) == 0 {
		return nil, cryptoDomain.ErrInvalidSalt
	}
	if version < 1 || uint64(version) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrInvalidKeyVersion, version)
	}

	var v [4]byte
	binary.BigEndian.PutUint32(v[:], uint32(version))

	material := concat(currentKey, v[:])
	defer cryptoDomain.SecureErase(material)

	return pbkdf2.Key(
		material,
		salt,
		cryptoDomain.VersionedKeyIterations,
		len(currentKey),
		sha512.New,
	), nil
}

// DeriveRecordKey derives the encryption key of one stored record: the credential key for
// version 1, and the versioned key of that credential key for later versions.
func (k *KeyDerivationService) DeriveRecordKey(
	masterKey *cryptoDomain.MasterKey,
	userID, credentialID string,
	salt []byte,
	iterations, version int,
) ([]byte, error) {
	if len(salt) == 0 {
		return nil, cryptoDomain.ErrInvalidSalt
	}

	userKey, err := k.DeriveUserKey(masterKey, userID, salt, iterations)
	if err != nil {
		return nil, err
	}
	defer userKey.Erase()

	credKey, err := k.DeriveCredentialKey(userKey.Key, credentialID, salt, userKey.Iterations)
	if err != nil {
		return nil, err
	}
	if version <= 1 {
		return credKey, nil
	}
	defer cryptoDomain.SecureErase(credKey)

	return k.DeriveVersionedKey(credKey, version, salt)
}

// WrapKey encrypts keyToWrap with AES-256-GCM under wrappingKey, which must be 32 bytes.
func (k *KeyDerivationService) WrapKey(keyToWrap, wrappingKey []byte) (cryptoDomain.WrappedKey, error) {
	c, err := newWrapCipher(wrappingKey)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	payload, err := c.Seal(keyToWrap)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	return cryptoDomain.WrappedKey{
		WrappedKey: payload.Ciphertext,
		IV:         payload.IV,
		AuthTag:    payload.AuthTag,
	}, nil
}

// UnwrapKey recovers a key wrapped by WrapKey. A wrong wrapping key and corrupted material
// both yield ErrKeyUnwrapFailed.
func (k *KeyDerivationService) UnwrapKey(wrapped cryptoDomain.WrappedKey, wrappingKey []byte) ([]byte, error) {
	c, err := newWrapCipher(wrappingKey)
	if err != nil {
		return nil, err
	}

	key, err := c.Open(cryptoDomain.EncryptedPayload{
		Ciphertext: wrapped.WrappedKey,
		IV:         wrapped.IV,
		AuthTag:    wrapped.AuthTag,
	})
	if err != nil {
		return nil, cryptoDomain.ErrKeyUnwrapFailed
	}
	return key, nil
}

// VerifyDerivedKey reports whether derived equals expected without leaking timing information.
func (k *KeyDerivationService) VerifyDerivedKey(derived, expected []byte) bool {
	if len(derived) != len(expected) {
		return false
	}
	return hmac.Equal(derived, expected)
}

// MasterKeyFromPassword derives a 32-byte master key from an operator passphrase.
// A non-positive iteration count uses DefaultMasterKeyIterations.
func (k *KeyDerivationService) MasterKeyFromPassword(password, salt []byte, iterations int) ([]byte, error) {
	if len(password) == 0 {
		return nil, cryptoDomain.ErrEmptyPassphrase
	}
	if len(salt) == 0 {
		return nil, cryptoDomain.ErrInvalidSalt
	}
	if iterations <= 0 {
		iterations = cryptoDomain.DefaultMasterKeyIterations
	}
	return pbkdf2.Key(password, salt, iterations, cryptoDomain.MasterKeyLength, sha512.New), nil
}

func newWrapCipher(wrappingKey []byte) (*AESGCMCipher, error) {
	if len(wrappingKey) != cryptoDomain.MasterKeyLength {
		return nil, fmt.Errorf(
			"%w: wrapping key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidKeyLength,
			cryptoDomain.MasterKeyLength,
			len(wrappingKey),
		)
	}
	return NewAESGCM(wrappingKey, cryptoDomain.DefaultIVLength)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
