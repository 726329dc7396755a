package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

func newStoredCredential(id, userID string, createdAt time.Time) *credentialDomain.StoredCredential {
	return &credentialDomain.StoredCredential{
		ID:                id,
		UserID:            userID,
		VendorID:          "autotask",
		Type:              credentialDomain.TypeAPIKey,
		EncryptedData:     []byte("ciphertext"),
		IV:                []byte("0123456789abcdef"),
		AuthTag:           []byte("fedcba9876543210"),
		Salt:              []byte("salt-salt-salt-salt-salt-salt-32"),
		EncryptionVersion: 1,
		KeyIterations:     100000,
		Metadata: credentialDomain.Metadata{
			Label:     "primary",
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
			IsActive:  true,
			Custom:    map[string]any{"region": "eu"},
		},
	}
}

func TestMemoryCredentialRepository_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCredentialRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cred := newStoredCredential("c1", "u1", now)
	require.NoError(t, repo.Write(ctx, cred))
	assert.Equal(t, int64(1), cred.Revision)

	t.Run("read returns a copy", func(t *testing.T) {
		got, err := repo.Read(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, cred, got)

		got.EncryptedData[0] = 'X'
		got.Metadata.Custom["region"] = "us"

		again, err := repo.Read(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []byte("ciphertext"), again.EncryptedData)
		assert.Equal(t, "eu", again.Metadata.Custom["region"])
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := repo.Read(ctx, "nope")
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialNotFound)
	})

	t.Run("insert over existing record", func(t *testing.T) {
		err := repo.Write(ctx, newStoredCredential("c1", "u1", now))
		assert.ErrorIs(t, err, credentialDomain.ErrConcurrentModification)
	})

	t.Run("stale revision", func(t *testing.T) {
		first, err := repo.Read(ctx, "c1")
		require.NoError(t, err)
		second, err := repo.Read(ctx, "c1")
		require.NoError(t, err)

		first.Metadata.Label = "first"
		require.NoError(t, repo.Write(ctx, first))
		assert.Equal(t, int64(2), first.Revision)

		second.Metadata.Label = "second"
		assert.ErrorIs(t, repo.Write(ctx, second), credentialDomain.ErrConcurrentModification)

		stored, err := repo.Read(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "first", stored.Metadata.Label)
	})

	t.Run("update of deleted record", func(t *testing.T) {
		stored, err := repo.Read(ctx, "c1")
		require.NoError(t, err)

		existed, err := repo.Delete(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, existed)

		assert.ErrorIs(t, repo.Write(ctx, stored), credentialDomain.ErrConcurrentModification)

		existed, err = repo.Delete(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestMemoryCredentialRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCredentialRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base.Add(time.Hour) }

	for i := range 6 {
		userID := "u1"
		if i%3 == 2 {
			userID = "u2"
		}
		cred := newStoredCredential(fmt.Sprintf("c%d", i), userID, base.Add(time.Duration(i)*time.Minute))
		if i == 1 {
			cred.Metadata.IsActive = false
		}
		if i == 3 {
			expired := base
			cred.Metadata.ExpiresAt = &expired
		}
		require.NoError(t, repo.Write(ctx, cred))
	}

	inactive := false
	tests := []struct {
		name  string
		query credentialDomain.Query
		want  []string
	}{
		{"all", credentialDomain.Query{}, []string{"c0", "c1", "c2", "c3", "c4", "c5"}},
		{"by user", credentialDomain.Query{UserID: "u2"}, []string{"c2", "c5"}},
		{"inactive", credentialDomain.Query{IsActive: &inactive}, []string{"c1"}},
		{"exclude expired", credentialDomain.Query{UserID: "u1", ExcludeExpired: true}, []string{"c0", "c1", "c4"}},
		{"page", credentialDomain.Query{Limit: 2, Offset: 1}, []string{"c1", "c2"}},
		{"offset past end", credentialDomain.Query{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := repo.List(ctx, tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(creds))
			for _, c := range creds {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryCredentialRepository_Exists(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCredentialRepository()
	require.NoError(t, repo.Write(ctx, newStoredCredential("c1", "u1", time.Now())))

	exists, err := repo.Exists(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "c2")
	require.NoError(t, err)
	assert.False(t, exists)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.Exists(cancelled, "c1")
	assert.ErrorIs(t, err, context.Canceled)
}
