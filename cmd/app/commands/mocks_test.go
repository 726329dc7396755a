package commands

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	credentialUsecase "github.com/allisson/credvault/internal/credential/usecase"
)

type mockCredentialUseCase struct {
	mock.Mock
}

func (m *mockCredentialUseCase) storedResult(args mock.Arguments) (*credentialDomain.StoredCredential, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.StoredCredential), args.Error(1)
}

func (m *mockCredentialUseCase) Create(
	ctx context.Context,
	input credentialDomain.CreateInput,
) (*credentialDomain.StoredCredential, error) {
	return m.storedResult(m.Called(ctx, input))
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
	return m.storedResult(m.Called(ctx, userID, credentialID, input))
}

func (m *mockCredentialUseCase) Delete(ctx context.Context, userID, credentialID string) (bool, error) {
	args := m.Called(ctx, userID, credentialID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCredentialUseCase) Deactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	return m.storedResult(m.Called(ctx, userID, credentialID))
}

func (m *mockCredentialUseCase) Reactivate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	return m.storedResult(m.Called(ctx, userID, credentialID))
}

func (m *mockCredentialUseCase) Rotate(
	ctx context.Context,
	userID, credentialID string,
) (*credentialDomain.StoredCredential, error) {
	return m.storedResult(m.Called(ctx, userID, credentialID))
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

type mockBackupUseCase struct {
	mock.Mock
}

func (m *mockBackupUseCase) Create(
	ctx context.Context,
	createdBy string,
	query credentialDomain.Query,
) (*credentialDomain.BackupMetadata, error) {
	args := m.Called(ctx, createdBy, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.BackupMetadata), args.Error(1)
}

func (m *mockBackupUseCase) List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialDomain.BackupMetadata), args.Error(1)
}

func (m *mockBackupUseCase) Restore(
	ctx context.Context,
	backupID string,
	opts credentialUsecase.RestoreOptions,
) (int, error) {
	args := m.Called(ctx, backupID, opts)
	return args.Int(0), args.Error(1)
}

type mockAuditLogUseCase struct {
	mock.Mock
}

func (m *mockAuditLogUseCase) Log(ctx context.Context, entry *auditDomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditLogUseCase) Query(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

func (m *mockAuditLogUseCase) Verify(
	ctx context.Context,
	opts auditDomain.QueryOptions,
) (*auditDomain.VerificationReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationReport), args.Error(1)
}
