package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PBKDF2_ITERATIONS", "1000")
	t.Setenv("MASTER_KEY", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x24}, 32)))
	t.Setenv("BACKUP_BUCKET_URL", "file://"+t.TempDir())
	t.Setenv("METRICS_FILE", filepath.Join(t.TempDir(), "credvault.prom"))
}

func TestRootCommand_Commands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range newRootCommand().Commands {
		names = append(names, cmd.Name)
	}

	assert.ElementsMatch(t, []string{
		"migrate",
		"query-audit-logs",
		"verify-audit-logs",
		"create-master-key",
		"create-credential",
		"get-credential",
		"list-credentials",
		"update-credential",
		"set-credential-status",
		"rotate-credential",
		"rotate-user-credentials",
		"delete-credential",
		"deactivate-expired-credentials",
		"create-backup",
		"list-backups",
		"restore-backup",
	}, names)
}

func TestRootCommand_MemoryDriver(t *testing.T) {
	setMemoryEnv(t)
	ctx := context.Background()

	t.Run("migrate is a no-op", func(t *testing.T) {
		require.NoError(t, newRootCommand().Run(ctx, []string{"credvault", "migrate"}))
	})

	t.Run("create credential", func(t *testing.T) {
		err := newRootCommand().Run(ctx, []string{
			"credvault", "--actor", "ops",
			"create-credential",
			"--user-id", "u1",
			"--vendor-id", "autotask",
			"--type", "api_key",
			"--data", `{"apiKey":"plaintext-key"}`,
			"--format", "json",
		})
		require.NoError(t, err)
	})

	t.Run("missing credential", func(t *testing.T) {
		err := newRootCommand().Run(ctx, []string{
			"credvault", "get-credential", "--user-id", "u1", "--id", "missing",
		})
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialNotFound)
	})

	t.Run("backup round trip", func(t *testing.T) {
		require.NoError(t, newRootCommand().Run(ctx, []string{"credvault", "create-backup"}))
		require.NoError(t, newRootCommand().Run(ctx, []string{"credvault", "list-backups", "--format", "json"}))
	})

	t.Run("verify audit logs", func(t *testing.T) {
		require.NoError(t, newRootCommand().Run(ctx, []string{"credvault", "verify-audit-logs"}))
	})
}
