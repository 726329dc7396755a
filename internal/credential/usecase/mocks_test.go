package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

type mockStorageBackend struct {
	mock.Mock
}

func (m *mockStorageBackend) Read(ctx context.Context, id string) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockStorageBackend) Write(ctx context.Context, credential *credentialDomain.StoredCredential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *mockStorageBackend) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorageBackend) List(
	ctx context.Context,
	query credentialDomain.Query,
) ([]*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockStorageBackend) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockAuditLogger struct {
	mock.Mock
}

func (m *mockAuditLogger) Log(ctx context.Context, entry *auditDomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditLogger) Query(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordCredentials(ctx context.Context, domain, operation string, count int) {
	m.Called(ctx, domain, operation, count)
}

type mockCredentialUseCase struct {
	mock.Mock
}

func (m *mockCredentialUseCase) Create(
	ctx context.Context,
	input credentialDomain.CreateInput,
) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Read(
	ctx context.Context,
	userID, credentialID string,
	opts credentialDomain.ReadOptions,
) (*credentialDomain.DecryptedCredential, error) {
	args := m.Called(ctx, userID, credentialID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.DecryptedCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Update(
	ctx context.Context,
	userID, credentialID string,
	input credentialDomain.UpdateInput,
) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, userID, credentialID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Delete(ctx context.Context, userID, credentialID string) (bool, error) {
	args := m.Called(ctx, userID, credentialID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCredentialUseCase) Deactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, userID, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Reactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, userID, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Rotate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	args := m.Called(ctx, userID, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) RotateUser(
	ctx context.Context,
	userID string,
) (*credentialDomain.RotationReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.RotationReport), args.Error(1)
}

func (m *mockCredentialUseCase) List(
	ctx context.Context,
	query credentialDomain.Query,
) ([]*credentialDomain.Summary, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialDomain.Summary), args.Error(1)
}

func (m *mockCredentialUseCase) DeactivateExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
