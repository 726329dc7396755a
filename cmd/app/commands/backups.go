package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	credentialUsecase "github.com/allisson/credvault/internal/credential/usecase"
)

// RunCreateBackup snapshots the credentials matching query into the backup bucket. Records
// stay encrypted in the bundle.
func RunCreateBackup(
	ctx context.Context,
	backups credentialUsecase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	createdBy string,
	query credentialDomain.Query,
	format string,
) error {
	metadata, err := backups.Create(ctx, createdBy, query)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	logger.Info("backup created",
		slog.String("backup_id", metadata.ID),
		slog.Int("credential_count", metadata.CredentialCount),
	)

	if format == "json" {
		return outputJSON(writer, metadata)
	}

	_, _ = fmt.Fprintln(writer, "Backup created")
	writeBackupText(writer, metadata)
	return nil
}

// RunListBackups prints the metadata of every stored backup.
func RunListBackups(
	ctx context.Context,
	backups credentialUsecase.BackupUseCase,
	writer io.Writer,
	format string,
) error {
	list, err := backups.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, list)
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintln(writer, "No backups found")
		return nil
	}

	for _, m := range list {
		_, _ = fmt.Fprintf(writer, "%s  %s  by=%s  credentials=%d\n",
			m.ID, formatTime(&m.CreatedAt), m.CreatedBy, m.CredentialCount)
	}
	return nil
}

// RunRestoreBackup verifies a backup and writes its records back to storage.
func RunRestoreBackup(
	ctx context.Context,
	backups credentialUsecase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	backupID string,
	overwrite bool,
	format string,
) error {
	restored, err := backups.Restore(ctx, backupID, credentialUsecase.RestoreOptions{Overwrite: overwrite})
	if err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	logger.Info("backup restored",
		slog.String("backup_id", backupID),
		slog.Int("restored_count", restored),
	)

	if format == "json" {
		return outputJSON(writer, map[string]any{
			"backup_id":      backupID,
			"restored_count": restored,
		})
	}

	_, _ = fmt.Fprintf(writer, "Restored %d credential(s) from backup %s\n", restored, backupID)
	return nil
}

func writeBackupText(writer io.Writer, m *credentialDomain.BackupMetadata) {
	_, _ = fmt.Fprintf(writer, "ID:           %s\n", m.ID)
	_, _ = fmt.Fprintf(writer, "Created At:   %s\n", formatTime(&m.CreatedAt))
	_, _ = fmt.Fprintf(writer, "Created By:   %s\n", m.CreatedBy)
	_, _ = fmt.Fprintf(writer, "Credentials:  %d\n", m.CredentialCount)
	_, _ = fmt.Fprintf(writer, "Version:      %d\n", m.Version)
	_, _ = fmt.Fprintf(writer, "Checksum:     %s\n", m.Checksum)
}
