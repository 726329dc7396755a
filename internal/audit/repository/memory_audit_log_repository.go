// Package repository provides audit log persistence for PostgreSQL, MySQL and process memory.
package repository

import (
	"bytes"
	"context"
	"maps"
	"sync"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
)

// MemoryAuditLogRepository keeps audit entries in process memory. It backs the "memory"
// database driver and tests; entries are lost when the process exits.
type MemoryAuditLogRepository struct {
	mu      sync.RWMutex
	entries []*auditDomain.Entry
}

// Create appends a copy of entry.
func (m *MemoryAuditLogRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, copyEntry(entry))
	return nil
}

// List returns copies of the matching entries, newest first.
func (m *MemoryAuditLogRepository) List(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := opts.EffectiveLimit()
	skipped := 0
	result := make([]*auditDomain.Entry, 0)
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.entries[i]
		if !opts.Matches(e) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		result = append(result, copyEntry(e))
	}
	return result, nil
}

func copyEntry(e *auditDomain.Entry) *auditDomain.Entry {
	out := *e
	out.Context = maps.Clone(e.Context)
	out.Signature = bytes.Clone(e.Signature)
	return &out
}

// NewMemoryAuditLogRepository creates an empty in-memory audit store.
func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}
