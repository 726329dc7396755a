package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

func newTestMasterKey(t *testing.T, fill byte) *cryptoDomain.MasterKey {
	t.Helper()
	mk, err := cryptoDomain.NewMasterKey(bytes.Repeat([]byte{fill}, cryptoDomain.MasterKeyLength))
	require.NoError(t, err)
	t.Cleanup(mk.Destroy)
	return mk
}

func TestKeyDerivationService_DeriveUserKey(t *testing.T) {
	engine := newTestEngine(t)
	kd := NewKeyDerivationService(engine)
	mk := newTestMasterKey(t, 0x11)
	salt := bytes.Repeat([]byte{0x22}, cryptoDomain.DefaultSaltLength)

	t.Run("deterministic for the same salt", func(t *testing.T) {
		a, err := kd.DeriveUserKey(mk, "alice", salt, 0)
		require.NoError(t, err)
		b, err := kd.DeriveUserKey(mk, "alice", salt, 0)
		require.NoError(t, err)

		assert.Equal(t, a.Key, b.Key)
		assert.Len(t, a.Key, 32)
		assert.Equal(t, salt, a.Salt)
		assert.Equal(t, 1000, a.Iterations)
	})

	t.Run("different user same salt", func(t *testing.T) {
		a, err := kd.DeriveUserKey(mk, "alice", salt, 0)
		require.NoError(t, err)
		b, err := kd.DeriveUserKey(mk, "bob", salt, 0)
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key)
	})

	t.Run("different master key", func(t *testing.T) {
		other := newTestMasterKey(t, 0x12)
		a, err := kd.DeriveUserKey(mk, "alice", salt, 0)
		require.NoError(t, err)
		b, err := kd.DeriveUserKey(other, "alice", salt, 0)
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key)
	})

	t.Run("nil salt generates one", func(t *testing.T) {
		a, err := kd.DeriveUserKey(mk, "alice", nil, 0)
		require.NoError(t, err)
		b, err := kd.DeriveUserKey(mk, "alice", nil, 0)
		require.NoError(t, err)

		assert.Len(t, a.Salt, cryptoDomain.DefaultSaltLength)
		assert.NotEqual(t, a.Salt, b.Salt)
		assert.NotEqual(t, a.Key, b.Key)

		again, err := kd.DeriveUserKey(mk, "alice", a.Salt, a.Iterations)
		require.NoError(t, err)
		assert.Equal(t, a.Key, again.Key)
	})

	t.Run("explicit iterations change the key", func(t *testing.T) {
		a, err := kd.DeriveUserKey(mk, "alice", salt, 1000)
		require.NoError(t, err)
		b, err := kd.DeriveUserKey(mk, "alice", salt, 1001)
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key)
		assert.Equal(t, 1001, b.Iterations)
	})

	t.Run("empty salt rejected", func(t *testing.T) {
		_, err := kd.DeriveUserKey(mk, "alice", []byte{}, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidSalt)
	})

	t.Run("nil master key", func(t *testing.T) {
		_, err := kd.DeriveUserKey(nil, "alice", salt, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotConfigured)
	})

	t.Run("destroyed master key", func(t *testing.T) {
		gone := newTestMasterKey(t, 0x13)
		gone.Destroy()
		_, err := kd.DeriveUserKey(gone, "alice", salt, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyDestroyed)
	})
}

func TestKeyDerivationService_DeriveCredentialKey(t *testing.T) {
	kd := NewKeyDerivationService(newTestEngine(t))
	userKeyA := bytes.Repeat([]byte{0xaa}, 32)
	userKeyB := bytes.Repeat([]byte{0xbb}, 32)

	for _, salt := range [][]byte{
		bytes.Repeat([]byte{0x01}, 32),
		bytes.Repeat([]byte{0x02}, 16),
	} {
		c1, err := kd.DeriveCredentialKey(userKeyA, "cred1", salt, 0)
		require.NoError(t, err)
		c2, err := kd.DeriveCredentialKey(userKeyA, "cred2", salt, 0)
		require.NoError(t, err)
		c1b, err := kd.DeriveCredentialKey(userKeyB, "cred1", salt, 0)
		require.NoError(t, err)
		again, err := kd.DeriveCredentialKey(userKeyA, "cred1", salt, 0)
		require.NoError(t, err)

		assert.Len(t, c1, 32)
		assert.NotEqual(t, c1, c2)
		assert.NotEqual(t, c1, c1b)
		assert.Equal(t, c1, again)
	}

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := kd.DeriveCredentialKey(nil, "cred1", []byte{1}, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyLength)

		_, err = kd.DeriveCredentialKey(userKeyA, "cred1", nil, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidSalt)
	})

	t.Run("output follows configured key size", func(t *testing.T) {
		cfg := cryptoDomain.DefaultEncryptionConfig()
		cfg.KeySize = 128
		cfg.PBKDF2Iterations = 1000
		engine, err := NewEncryptionService(cfg)
		require.NoError(t, err)

		key, err := NewKeyDerivationService(engine).DeriveCredentialKey(userKeyA, "cred1", []byte{1, 2, 3}, 0)
		require.NoError(t, err)
		assert.Len(t, key, 16)
	})
}

func TestKeyDerivationService_DeriveVersionedKey(t *testing.T) {
	kd := NewKeyDerivationService(newTestEngine(t))
	base := bytes.Repeat([]byte{0x5a}, 32)
	salt := bytes.Repeat([]byte{0x03}, 32)

	v2, err := kd.DeriveVersionedKey(base, 2, salt)
	require.NoError(t, err)
	v3, err := kd.DeriveVersionedKey(base, 3, salt)
	require.NoError(t, err)
	v2again, err := kd.DeriveVersionedKey(base, 2, salt)
	require.NoError(t, err)

	assert.Len(t, v2, 32)
	assert.NotEqual(t, v2, v3)
	assert.NotEqual(t, base, v2)
	assert.Equal(t, v2, v2again)

	_, err = kd.DeriveVersionedKey(base, 0, salt)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyVersion)

	_, err = kd.DeriveVersionedKey(base, 2, nil)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidSalt)

	_, err = kd.DeriveVersionedKey(nil, 2, salt)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyLength)
}

func TestKeyDerivationService_DeriveRecordKey(t *testing.T) {
	kd := NewKeyDerivationService(newTestEngine(t))
	mk := newTestMasterKey(t, 0x31)
	salt := bytes.Repeat([]byte{0x04}, 32)

	v1, err := kd.DeriveRecordKey(mk, "u1", "c1", salt, 0, 1)
	require.NoError(t, err)

	userKey, err := kd.DeriveUserKey(mk, "u1", salt, 0)
	require.NoError(t, err)
	credKey, err := kd.DeriveCredentialKey(userKey.Key, "c1", salt, 0)
	require.NoError(t, err)
	assert.Equal(t, credKey, v1)

	v2, err := kd.DeriveRecordKey(mk, "u1", "c1", salt, 0, 2)
	require.NoError(t, err)
	expected, err := kd.DeriveVersionedKey(credKey, 2, salt)
	require.NoError(t, err)
	assert.Equal(t, expected, v2)
	assert.NotEqual(t, v1, v2)

	_, err = kd.DeriveRecordKey(mk, "u1", "c1", nil, 0, 1)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidSalt)
}

func TestKeyDerivationService_WrapUnwrap(t *testing.T) {
	engine := newTestEngine(t)
	kd := NewKeyDerivationService(engine)

	kek, err := engine.GenerateKey(256)
	require.NoError(t, err)
	key, err := engine.GenerateKey(256)
	require.NoError(t, err)

	wrapped, err := kd.WrapKey(key, kek)
	require.NoError(t, err)
	assert.Len(t, wrapped.IV, 16)
	assert.Len(t, wrapped.AuthTag, 16)
	assert.NotEqual(t, key, wrapped.WrappedKey)

	t.Run("round trip", func(t *testing.T) {
		out, err := kd.UnwrapKey(wrapped, kek)
		require.NoError(t, err)
		assert.Equal(t, key, out)
	})

	t.Run("different kek fails", func(t *testing.T) {
		other, err := engine.GenerateKey(256)
		require.NoError(t, err)
		_, err = kd.UnwrapKey(wrapped, other)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyUnwrapFailed)
	})

	t.Run("corrupted material fails", func(t *testing.T) {
		bad := wrapped
		bad.WrappedKey = bytes.Clone(wrapped.WrappedKey)
		bad.WrappedKey[0] ^= 0x01
		_, err := kd.UnwrapKey(bad, kek)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyUnwrapFailed)
	})

	t.Run("wrapping key length validated", func(t *testing.T) {
		_, err := kd.WrapKey(key, kek[:16])
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyLength)
		_, err = kd.UnwrapKey(wrapped, kek[:16])
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyLength)
	})
}

func TestKeyDerivationService_VerifyDerivedKey(t *testing.T) {
	kd := NewKeyDerivationService(newTestEngine(t))

	assert.True(t, kd.VerifyDerivedKey([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, kd.VerifyDerivedKey([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, kd.VerifyDerivedKey([]byte{1, 2, 3}, []byte{1, 2}))
}

func TestKeyDerivationService_MasterKeyFromPassword(t *testing.T) {
	kd := NewKeyDerivationService(newTestEngine(t))
	salt := []byte("operator-salt-0123456789abcdef")

	a, err := kd.MasterKeyFromPassword([]byte("correct horse"), salt, 1000)
	require.NoError(t, err)
	b, err := kd.MasterKeyFromPassword([]byte("correct horse"), salt, 1000)
	require.NoError(t, err)
	c, err := kd.MasterKeyFromPassword([]byte("battery staple"), salt, 1000)
	require.NoError(t, err)

	assert.Len(t, a, cryptoDomain.MasterKeyLength)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = kd.MasterKeyFromPassword(nil, salt, 1000)
	assert.ErrorIs(t, err, cryptoDomain.ErrEmptyPassphrase)

	_, err = kd.MasterKeyFromPassword([]byte("x"), nil, 1000)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidSalt)
}
