package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

// MemoryCredentialRepository keeps credentials in process memory. Records are cloned on the
// way in and out so callers never share state with the store.
type MemoryCredentialRepository struct {
	mu      sync.RWMutex
	records map[string]*credentialDomain.StoredCredential
	now     func() time.Time
}

// Read retrieves a credential by id.
func (m *MemoryCredentialRepository) Read(
	ctx context.Context,
	id string,
) (*credentialDomain.StoredCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.records[id]
	if !ok {
		return nil, credentialDomain.ErrCredentialNotFound
	}
	return cred.Clone(), nil
}

// Write inserts a new credential (Revision zero) or replaces the stored one if its revision
// still matches.
func (m *MemoryCredentialRepository) Write(ctx context.Context, cred *credentialDomain.StoredCredential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[cred.ID]
	switch {
	case cred.Revision == 0 && ok:
		return credentialDomain.ErrConcurrentModification
	case cred.Revision != 0 && (!ok || existing.Revision != cred.Revision):
		return credentialDomain.ErrConcurrentModification
	}

	cred.Revision++
	m.records[cred.ID] = cred.Clone()
	return nil
}

// Delete removes a credential and reports whether it existed.
func (m *MemoryCredentialRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[id]
	delete(m.records, id)
	return ok, nil
}

// List returns the matching credentials ordered by creation time.
func (m *MemoryCredentialRepository) List(
	ctx context.Context,
	q credentialDomain.Query,
) ([]*credentialDomain.StoredCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	now := m.now()
	matched := make([]*credentialDomain.StoredCredential, 0)
	for _, cred := range m.records {
		if q.Matches(cred, now) {
			matched = append(matched, cred.Clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *credentialDomain.StoredCredential) int {
		if c := a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	offset := max(q.Offset, 0)
	if offset >= len(matched) {
		return make([]*credentialDomain.StoredCredential, 0), nil
	}
	matched = matched[offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// Exists reports whether a credential with id is stored.
func (m *MemoryCredentialRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[id]
	return ok, nil
}

// NewMemoryCredentialRepository creates an empty in-memory credential store.
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		records: make(map[string]*credentialDomain.StoredCredential),
		now:     time.Now,
	}
}
