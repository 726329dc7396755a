package domain

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// MasterKey is the exclusively owned handle to the root secret of the key hierarchy.
//
// The key material is sealed in a memguard enclave: it is encrypted while at rest in
// process memory and is only decrypted into a locked, guard-paged buffer for the duration
// of a Use call. That buffer is destroyed (wiped) on every exit path, including panics.
//
// A MasterKey is provisioned once by the embedding process and is never serialized,
// logged or persisted. It is safe for concurrent use.
type MasterKey struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// NewMasterKey seals key into a new MasterKey. The key must be exactly 32 bytes.
// The caller's slice is wiped once it has been sealed, on success and on failure.
func NewMasterKey(key []byte) (*MasterKey, error) {
	if len(key) != MasterKeyLength {
		SecureErase(key)
		return nil, fmt.Errorf(
			"%w: master key must be %d bytes, got %d",
			ErrInvalidKeyLength,
			MasterKeyLength,
			len(key),
		)
	}

	// NewEnclave copies the data and wipes the source buffer.
	return &MasterKey{enclave: memguard.NewEnclave(key)}, nil
}

// Use opens the enclave and passes the plaintext key to fn. The slice handed to fn is
// only valid for the duration of the call and must not be retained.
func (m *MasterKey) Use(fn func(key []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.enclave == nil {
		return ErrMasterKeyDestroyed
	}

	buf, err := m.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open master key enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Destroy drops the enclave. Any later Use call fails with ErrMasterKeyDestroyed.
func (m *MasterKey) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enclave = nil
}

// String never prints key material.
func (m *MasterKey) String() string {
	return "MasterKey(redacted)"
}
