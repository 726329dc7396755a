package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	auditRepository "github.com/allisson/credvault/internal/audit/repository"
	auditService "github.com/allisson/credvault/internal/audit/service"
	auditUsecase "github.com/allisson/credvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

func TestAuditQueryParamsOptions(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		opts, err := AuditQueryParams{
			CredentialID: "c1",
			ActorUserID:  "admin",
			TargetUserID: "u1",
			Action:       "credential_rotated",
			Success:      "false",
			StartDate:    "2026-01-01",
			EndDate:      "2026-01-02 12:00:00",
			Limit:        10,
			Offset:       5,
		}.Options()
		require.NoError(t, err)

		assert.Equal(t, "c1", opts.CredentialID)
		assert.Equal(t, auditDomain.ActionCredentialRotated, opts.Action)
		require.NotNil(t, opts.Success)
		assert.False(t, *opts.Success)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *opts.StartDate)
		assert.Equal(t, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC), *opts.EndDate)
		assert.Equal(t, 10, opts.Limit)
		assert.Equal(t, 5, opts.Offset)
	})

	t.Run("empty", func(t *testing.T) {
		opts, err := AuditQueryParams{}.Options()
		require.NoError(t, err)
		assert.Equal(t, auditDomain.QueryOptions{}, opts)
	})

	tests := []struct {
		name   string
		params AuditQueryParams
		errMsg string
	}{
		{name: "unknown action", params: AuditQueryParams{Action: "secret_read"}, errMsg: "invalid action"},
		{name: "bad success", params: AuditQueryParams{Success: "maybe"}, errMsg: "invalid success filter"},
		{name: "bad start", params: AuditQueryParams{StartDate: "invalid"}, errMsg: "invalid start date"},
		{name: "bad end", params: AuditQueryParams{EndDate: "invalid"}, errMsg: "invalid end date"},
		{
			name:   "inverted range",
			params: AuditQueryParams{StartDate: "2026-01-02", EndDate: "2026-01-01"},
			errMsg: "end date must be after start date",
		},
		{name: "negative limit", params: AuditQueryParams{Limit: -1}, errMsg: "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.Options()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunQueryAuditLogs(t *testing.T) {
	ctx := context.Background()
	entry := &auditDomain.Entry{
		ID:           uuid.New(),
		Timestamp:    time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		Action:       auditDomain.ActionCredentialAccessed,
		CredentialID: "c1",
		ActorUserID:  "u1",
		TargetUserID: "u1",
		Success:      false,
		ErrorMessage: "credential expired",
		Context:      map[string]any{"vendorId": "autotask"},
	}

	t.Run("text", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		auditLog.On("Query", ctx, auditDomain.QueryOptions{CredentialID: "c1"}).
			Return([]*auditDomain.Entry{entry}, nil)

		var out bytes.Buffer
		require.NoError(t, RunQueryAuditLogs(ctx, auditLog, &out, AuditQueryParams{CredentialID: "c1"}, "text"))
		assert.Contains(t, out.String(), "credential_accessed")
		assert.Contains(t, out.String(), "failed: credential expired")
		auditLog.AssertExpectations(t)
	})

	t.Run("json", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		auditLog.On("Query", ctx, mock.Anything).Return([]*auditDomain.Entry{entry}, nil)

		var out bytes.Buffer
		require.NoError(t, RunQueryAuditLogs(ctx, auditLog, &out, AuditQueryParams{}, "json"))

		var result []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result, 1)
		assert.Equal(t, entry.ID.String(), result[0]["id"])
		assert.Equal(t, "credential expired", result[0]["error_message"])
		assert.NotContains(t, result[0], "signature")
	})

	t.Run("invalid-params", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		err := RunQueryAuditLogs(ctx, auditLog, io.Discard, AuditQueryParams{Action: "nope"}, "text")
		require.Error(t, err)
		auditLog.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})
}

func TestRunVerifyAuditLogs(t *testing.T) {
	ctx := context.Background()
	params := AuditQueryParams{StartDate: "2025-01-01", EndDate: "2025-01-02"}

	t.Run("success-text", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		auditLog.On("Verify", ctx, mock.AnythingOfType("domain.QueryOptions")).
			Return(&auditDomain.VerificationReport{Total: 10, Valid: 10}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, auditLog, discardLogger(), &out, params, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Audit Log Integrity Verification")
		require.Contains(t, out.String(), "Status: PASSED")
		auditLog.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		auditLog.On("Verify", ctx, mock.Anything).
			Return(&auditDomain.VerificationReport{Total: 10, Valid: 10}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, auditLog, discardLogger(), &out, params, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, float64(10), result["total_checked"])
		require.Equal(t, true, result["passed"])
	})

	t.Run("invalid-dates", func(t *testing.T) {
		err := RunVerifyAuditLogs(ctx, nil, discardLogger(), nil, AuditQueryParams{StartDate: "invalid"}, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid start date")
	})

	t.Run("integrity-failure", func(t *testing.T) {
		auditLog := &mockAuditLogUseCase{}
		auditLog.On("Verify", ctx, mock.Anything).Return(&auditDomain.VerificationReport{
			Total:   10,
			Valid:   8,
			Invalid: []uuid.UUID{uuid.New(), uuid.New()},
		}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, auditLog, discardLogger(), &out, params, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "integrity check failed")
		require.Contains(t, out.String(), "WARNING: 2 log(s) failed integrity check!")
	})
}

func TestRunVerifyAuditLogs_SignedEntries(t *testing.T) {
	ctx := context.Background()

	masterKey, err := cryptoDomain.NewMasterKey(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	t.Cleanup(masterKey.Destroy)

	auditLog := auditUsecase.NewAuditLogUseCase(
		auditRepository.NewMemoryAuditLogRepository(),
		auditService.NewAuditSigner(),
		masterKey,
	)
	for _, action := range []auditDomain.Action{
		auditDomain.ActionCredentialCreated,
		auditDomain.ActionCredentialAccessed,
	} {
		require.NoError(t, auditLog.Log(ctx, &auditDomain.Entry{
			Action:       action,
			CredentialID: "c1",
			ActorUserID:  "u1",
			TargetUserID: "u1",
			Success:      true,
		}))
	}

	var out bytes.Buffer
	require.NoError(t, RunVerifyAuditLogs(ctx, auditLog, discardLogger(), &out, AuditQueryParams{}, "json"))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, float64(2), result["valid_count"])
	assert.Equal(t, float64(0), result["invalid_count"])
}
