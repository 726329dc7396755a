package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storedCredential() *credentialDomain.StoredCredential {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &credentialDomain.StoredCredential{
		ID:                "c1",
		UserID:            "u1",
		VendorID:          "autotask",
		Type:              credentialDomain.TypeAPIKey,
		EncryptionVersion: 1,
		Metadata: credentialDomain.Metadata{
			Label:     "primary",
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
		},
	}
}

func TestRunCreateCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("success-text", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Create", ctx, mock.MatchedBy(func(in credentialDomain.CreateInput) bool {
			return in.UserID == "u1" &&
				in.VendorID == "autotask" &&
				in.Type == credentialDomain.TypeAPIKey &&
				reflect.DeepEqual(in.Data, credentialDomain.APIKey{APIKey: "plaintext-key"}) &&
				in.Label == "primary" &&
				in.ExpiresAt != nil && in.ExpiresAt.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				in.Custom["region"] == "eu"
		})).Return(storedCredential(), nil)

		var out bytes.Buffer
		err := RunCreateCredential(ctx, vault, discardLogger(), &out, CreateCredentialParams{
			UserID:    "u1",
			VendorID:  "autotask",
			Type:      "api_key",
			Data:      `{"apiKey":"plaintext-key"}`,
			Label:     "primary",
			ExpiresAt: "2030-01-01",
			Custom:    `{"region":"eu"}`,
		}, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Credential created")
		assert.Contains(t, out.String(), "c1")
		assert.NotContains(t, out.String(), "plaintext-key")
		vault.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Create", ctx, mock.Anything).Return(storedCredential(), nil)

		var out bytes.Buffer
		err := RunCreateCredential(ctx, vault, discardLogger(), &out, CreateCredentialParams{
			UserID:   "u1",
			VendorID: "autotask",
			Type:     "secret",
			Data:     `{"value":"plaintext-value"}`,
		}, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, "c1", result["id"])
		assert.NotContains(t, result, "encryptedData")
	})

	t.Run("invalid-inputs", func(t *testing.T) {
		tests := []struct {
			name   string
			params CreateCredentialParams
			errMsg string
		}{
			{
				name:   "unknown type",
				params: CreateCredentialParams{Type: "password", Data: `{"value":"x"}`},
				errMsg: "invalid credential data",
			},
			{
				name:   "malformed data",
				params: CreateCredentialParams{Type: "api_key", Data: `not-json`},
				errMsg: "invalid credential data",
			},
			{
				name:   "bad expiry",
				params: CreateCredentialParams{Type: "api_key", Data: `{"apiKey":"x"}`, ExpiresAt: "tomorrow"},
				errMsg: "invalid expires-at",
			},
			{
				name:   "bad custom",
				params: CreateCredentialParams{Type: "api_key", Data: `{"apiKey":"x"}`, Custom: `[1,2]`},
				errMsg: "invalid custom metadata JSON",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				vault := &mockCredentialUseCase{}
				err := RunCreateCredential(ctx, vault, discardLogger(), io.Discard, tt.params, "text")
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				vault.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("usecase-error", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Create", ctx, mock.Anything).Return(nil, credentialDomain.ErrCredentialAlreadyExists)

		err := RunCreateCredential(ctx, vault, discardLogger(), io.Discard, CreateCredentialParams{
			ID:       "c1",
			UserID:   "u1",
			VendorID: "autotask",
			Type:     "api_key",
			Data:     `{"apiKey":"x"}`,
		}, "text")
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialAlreadyExists)
	})
}

func TestRunGetCredential(t *testing.T) {
	ctx := context.Background()
	decrypted := &credentialDomain.DecryptedCredential{
		ID:       "c1",
		UserID:   "u1",
		VendorID: "autotask",
		Type:     credentialDomain.TypeAPIKey,
		Data:     credentialDomain.APIKey{APIKey: "plaintext-key"},
		Metadata: credentialDomain.Metadata{IsActive: true, AccessCount: 3},
	}

	t.Run("success-text", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Read", ctx, "u1", "c1", credentialDomain.ReadOptions{ExcludeExpired: true}).Return(decrypted, nil)

		var out bytes.Buffer
		err := RunGetCredential(ctx, vault, &out, "u1", "c1", true, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Access Count:  3")
		assert.Contains(t, out.String(), `"apiKey": "plaintext-key"`)
		vault.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Read", ctx, "u1", "c1", credentialDomain.ReadOptions{}).Return(decrypted, nil)

		var out bytes.Buffer
		err := RunGetCredential(ctx, vault, &out, "u1", "c1", false, "json")
		require.NoError(t, err)

		var result struct {
			ID   string            `json:"id"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, "c1", result.ID)
		assert.Equal(t, "plaintext-key", result.Data["apiKey"])
	})

	t.Run("not-found", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Read", ctx, "u2", "c1", credentialDomain.ReadOptions{}).
			Return(nil, credentialDomain.ErrCredentialNotFound)

		err := RunGetCredential(ctx, vault, io.Discard, "u2", "c1", false, "text")
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialNotFound)
	})
}

func TestRunListCredentials(t *testing.T) {
	ctx := context.Background()
	active := true
	query := credentialDomain.Query{UserID: "u1", IsActive: &active}

	t.Run("text", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("List", ctx, query).Return([]*credentialDomain.Summary{storedCredential().Summary()}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, vault, &out, query, "text"))
		assert.Contains(t, out.String(), "c1  u1  autotask  api_key  v1  active")
		assert.Contains(t, out.String(), "Total: 1")
	})

	t.Run("empty", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("List", ctx, query).Return([]*credentialDomain.Summary{}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, vault, &out, query, "text"))
		assert.Contains(t, out.String(), "No credentials found")
	})

	t.Run("json", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("List", ctx, query).Return([]*credentialDomain.Summary{storedCredential().Summary()}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, vault, &out, query, "json"))

		var result []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result, 1)
		assert.Equal(t, "autotask", result[0]["vendorId"])
	})
}

func TestRunUpdateCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("data-and-label", func(t *testing.T) {
		label := "rotated by hand"
		vault := &mockCredentialUseCase{}
		vault.On("Update", ctx, "u1", "c1", mock.MatchedBy(func(in credentialDomain.UpdateInput) bool {
			return reflect.DeepEqual(in.Data, credentialDomain.APIKey{APIKey: "new-key"}) &&
				in.Label != nil && *in.Label == label &&
				in.ClearExpiresAt
		})).Return(storedCredential(), nil)

		var out bytes.Buffer
		err := RunUpdateCredential(ctx, vault, &out, "u1", "c1", UpdateCredentialParams{
			Type:        "api_key",
			Data:        `{"apiKey":"new-key"}`,
			Label:       &label,
			ClearExpiry: true,
		}, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Credential updated")
		vault.AssertExpectations(t)
	})

	t.Run("data-without-type", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		err := RunUpdateCredential(ctx, vault, io.Discard, "u1", "c1", UpdateCredentialParams{
			Data: `{"apiKey":"new-key"}`,
		}, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--type is required")
	})

	t.Run("nothing-to-update", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		err := RunUpdateCredential(ctx, vault, io.Discard, "u1", "c1", UpdateCredentialParams{}, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to update")
		vault.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunSetCredentialStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivate", func(t *testing.T) {
		cred := storedCredential()
		cred.Metadata.IsActive = false
		vault := &mockCredentialUseCase{}
		vault.On("Deactivate", ctx, "u1", "c1").Return(cred, nil)

		var out bytes.Buffer
		require.NoError(t, RunSetCredentialStatus(ctx, vault, &out, "u1", "c1", false, "text"))
		assert.Contains(t, out.String(), "Credential deactivated")
		assert.Contains(t, out.String(), "Active:        false")
	})

	t.Run("reactivate-invalid-transition", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Reactivate", ctx, "u1", "c1").Return(nil, credentialDomain.ErrInvalidStateTransition)

		err := RunSetCredentialStatus(ctx, vault, io.Discard, "u1", "c1", true, "text")
		assert.ErrorIs(t, err, credentialDomain.ErrInvalidStateTransition)
	})
}

func TestRunRotateCredential(t *testing.T) {
	ctx := context.Background()
	cred := storedCredential()
	cred.EncryptionVersion = 2

	vault := &mockCredentialUseCase{}
	vault.On("Rotate", ctx, "u1", "c1").Return(cred, nil)

	var out bytes.Buffer
	require.NoError(t, RunRotateCredential(ctx, vault, discardLogger(), &out, "u1", "c1", "json"))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, float64(2), result["encryptionVersion"])
}

func TestRunRotateUserCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("all-rotated", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("RotateUser", ctx, "u1").Return(&credentialDomain.RotationReport{
			Rotated: []string{"c1", "c2"},
			Failed:  map[string]error{},
		}, nil)

		var out bytes.Buffer
		require.NoError(t, RunRotateUserCredentials(ctx, vault, discardLogger(), &out, "u1", "text"))
		assert.Contains(t, out.String(), "Rotated 2 credential(s) for user u1")
	})

	t.Run("partial-failure", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("RotateUser", ctx, "u1").Return(&credentialDomain.RotationReport{
			Rotated: []string{"c1"},
			Failed:  map[string]error{"c2": errors.New("decryption failed")},
		}, nil)

		var out bytes.Buffer
		err := RunRotateUserCredentials(ctx, vault, discardLogger(), &out, "u1", "json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rotation failed for 1 credential(s)")

		var result struct {
			Rotated []string          `json:"rotated"`
			Failed  map[string]string `json:"failed"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, []string{"c1"}, result.Rotated)
		assert.Equal(t, "decryption failed", result.Failed["c2"])
	})
}

func TestRunDeleteCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Delete", ctx, "u1", "c1").Return(true, nil)

		var out bytes.Buffer
		require.NoError(t, RunDeleteCredential(ctx, vault, &out, "u1", "c1", "text"))
		assert.Contains(t, out.String(), "Credential c1 deleted")
	})

	t.Run("missing", func(t *testing.T) {
		vault := &mockCredentialUseCase{}
		vault.On("Delete", ctx, "u1", "c9").Return(false, nil)

		var out bytes.Buffer
		require.NoError(t, RunDeleteCredential(ctx, vault, &out, "u1", "c9", "json"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, false, result["deleted"])
	})
}

func TestRunDeactivateExpiredCredentials(t *testing.T) {
	ctx := context.Background()

	vault := &mockCredentialUseCase{}
	vault.On("DeactivateExpired", ctx).Return(3, nil).Once()

	var out bytes.Buffer
	require.NoError(t, RunDeactivateExpiredCredentials(ctx, vault, discardLogger(), &out, "text"))
	assert.Contains(t, out.String(), "Deactivated 3 expired credential(s)")

	vault.On("DeactivateExpired", ctx).Return(0, errors.New("storage unavailable")).Once()
	err := RunDeactivateExpiredCredentials(ctx, vault, discardLogger(), io.Discard, "text")
	assert.ErrorContains(t, err, "failed to deactivate expired credentials")
}
