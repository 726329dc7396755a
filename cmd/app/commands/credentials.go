package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	credentialUsecase "github.com/allisson/credvault/internal/credential/usecase"
)

// CreateCredentialParams carries the raw create-credential flags.
type CreateCredentialParams struct {
	ID        string
	UserID    string
	VendorID  string
	Type      string
	Data      string
	Label     string
	ExpiresAt string
	Custom    string
}

// UpdateCredentialParams carries the raw update-credential flags. Nil or empty fields are
// left unchanged.
type UpdateCredentialParams struct {
	// Type is required with Data, since the payload is decoded before the record is loaded.
	Type        string
	Data        string
	Label       *string
	ExpiresAt   string
	ClearExpiry bool
	Custom      string
}

// RunCreateCredential encrypts and stores a new credential. Data is the JSON payload for the
// credential type, e.g. {"apiKey":"..."} for api_key.
func RunCreateCredential(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params CreateCredentialParams,
	format string,
) error {
	credType := credentialDomain.Type(params.Type)
	data, err := credentialDomain.DecodeDataJSON(credType, []byte(params.Data))
	if err != nil {
		return fmt.Errorf("invalid credential data: %w", err)
	}

	expiresAt, err := parseOptionalDate(params.ExpiresAt)
	if err != nil {
		return fmt.Errorf("invalid expires-at: %w", err)
	}

	custom, err := parseCustom(params.Custom)
	if err != nil {
		return err
	}

	cred, err := vault.Create(ctx, credentialDomain.CreateInput{
		ID:        params.ID,
		UserID:    params.UserID,
		VendorID:  params.VendorID,
		Type:      credType,
		Data:      data,
		Label:     params.Label,
		ExpiresAt: expiresAt,
		Custom:    custom,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	logger.Info("credential created",
		slog.String("credential_id", cred.ID),
		slog.String("user_id", cred.UserID),
		slog.String("vendor_id", cred.VendorID),
	)

	return outputSummary(writer, "Credential created", cred.Summary(), format)
}

// RunGetCredential decrypts a credential and prints it, plaintext data included.
func RunGetCredential(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	writer io.Writer,
	userID, credentialID string,
	excludeExpired bool,
	format string,
) error {
	cred, err := vault.Read(ctx, userID, credentialID, credentialDomain.ReadOptions{ExcludeExpired: excludeExpired})
	if err != nil {
		return fmt.Errorf("failed to get credential: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, map[string]any{
			"id":       cred.ID,
			"userId":   cred.UserID,
			"vendorId": cred.VendorID,
			"type":     cred.Type,
			"data":     cred.Data,
			"metadata": cred.Metadata,
		})
	}

	writeMetadataText(writer, cred.ID, cred.UserID, cred.VendorID, cred.Type, cred.Metadata)
	_, _ = fmt.Fprintln(writer, "Data:")
	return outputJSON(writer, cred.Data)
}

// RunListCredentials prints the summaries matching query. Ciphertext is never listed.
func RunListCredentials(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	writer io.Writer,
	query credentialDomain.Query,
	format string,
) error {
	summaries, err := vault.List(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, summaries)
	}

	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(writer, "No credentials found")
		return nil
	}

	for _, s := range summaries {
		status := "active"
		if !s.Metadata.IsActive {
			status = "inactive"
		}
		_, _ = fmt.Fprintf(writer, "%s  %s  %s  %s  v%d  %s  expires=%s\n",
			s.ID, s.UserID, s.VendorID, s.Type, s.EncryptionVersion, status, formatTime(s.Metadata.ExpiresAt))
	}
	_, _ = fmt.Fprintf(writer, "\nTotal: %d\n", len(summaries))
	return nil
}

// RunUpdateCredential applies a partial update. New data is re-encrypted under a fresh salt.
func RunUpdateCredential(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	writer io.Writer,
	userID, credentialID string,
	params UpdateCredentialParams,
	format string,
) error {
	var input credentialDomain.UpdateInput

	if params.Data != "" {
		if params.Type == "" {
			return fmt.Errorf("--type is required when --data is set")
		}
		data, err := credentialDomain.DecodeDataJSON(credentialDomain.Type(params.Type), []byte(params.Data))
		if err != nil {
			return fmt.Errorf("invalid credential data: %w", err)
		}
		input.Data = data
	}

	expiresAt, err := parseOptionalDate(params.ExpiresAt)
	if err != nil {
		return fmt.Errorf("invalid expires-at: %w", err)
	}
	input.ExpiresAt = expiresAt
	input.ClearExpiresAt = params.ClearExpiry
	input.Label = params.Label

	custom, err := parseCustom(params.Custom)
	if err != nil {
		return err
	}
	input.Custom = custom

	if input.Empty() {
		return fmt.Errorf("nothing to update")
	}

	cred, err := vault.Update(ctx, userID, credentialID, input)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	return outputSummary(writer, "Credential updated", cred.Summary(), format)
}

// RunSetCredentialStatus deactivates or reactivates a credential.
func RunSetCredentialStatus(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	writer io.Writer,
	userID, credentialID string,
	active bool,
	format string,
) error {
	var (
		cred  *credentialDomain.StoredCredential
		err   error
		title string
	)
	if active {
		cred, err = vault.Reactivate(ctx, userID, credentialID)
		title = "Credential reactivated"
	} else {
		cred, err = vault.Deactivate(ctx, userID, credentialID)
		title = "Credential deactivated"
	}
	if err != nil {
		return fmt.Errorf("failed to set credential status: %w", err)
	}

	return outputSummary(writer, title, cred.Summary(), format)
}

// RunRotateCredential re-encrypts one credential under the next encryption version.
func RunRotateCredential(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	logger *slog.Logger,
	writer io.Writer,
	userID, credentialID string,
	format string,
) error {
	cred, err := vault.Rotate(ctx, userID, credentialID)
	if err != nil {
		return fmt.Errorf("failed to rotate credential: %w", err)
	}

	logger.Info("credential rotated",
		slog.String("credential_id", cred.ID),
		slog.Int("encryption_version", cred.EncryptionVersion),
	)

	return outputSummary(writer, "Credential rotated", cred.Summary(), format)
}

// RunRotateUserCredentials rotates every credential of a user. Failed credentials are
// reported and make the command fail once the whole batch has run.
func RunRotateUserCredentials(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	logger *slog.Logger,
	writer io.Writer,
	userID string,
	format string,
) error {
	report, err := vault.RotateUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to rotate user credentials: %w", err)
	}

	failedIDs := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failedIDs = append(failedIDs, id)
	}
	sort.Strings(failedIDs)

	if format == "json" {
		failures := make(map[string]string, len(report.Failed))
		for id, ferr := range report.Failed {
			failures[id] = ferr.Error()
		}
		if err := outputJSON(writer, map[string]any{
			"user_id": userID,
			"rotated": report.Rotated,
			"failed":  failures,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Rotated %d credential(s) for user %s\n", len(report.Rotated), userID)
		for _, id := range report.Rotated {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		if len(failedIDs) > 0 {
			_, _ = fmt.Fprintf(writer, "\nFailed: %d\n", len(failedIDs))
			for _, id := range failedIDs {
				_, _ = fmt.Fprintf(writer, "  - %s: %v\n", id, report.Failed[id])
			}
		}
	}

	logger.Info("user credential rotation completed",
		slog.String("user_id", userID),
		slog.Int("rotated", len(report.Rotated)),
		slog.Int("failed", len(failedIDs)),
	)

	if len(failedIDs) > 0 {
		return fmt.Errorf("rotation failed for %d credential(s)", len(failedIDs))
	}
	return nil
}

// RunDeleteCredential deletes a credential. Deleting a missing credential is not an error.
func RunDeleteCredential(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	writer io.Writer,
	userID, credentialID string,
	format string,
) error {
	existed, err := vault.Delete(ctx, userID, credentialID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, map[string]any{
			"id":      credentialID,
			"deleted": existed,
		})
	}

	if existed {
		_, _ = fmt.Fprintf(writer, "Credential %s deleted\n", credentialID)
	} else {
		_, _ = fmt.Fprintf(writer, "Credential %s not found, nothing deleted\n", credentialID)
	}
	return nil
}

// RunDeactivateExpiredCredentials deactivates every active credential past its expiry.
func RunDeactivateExpiredCredentials(
	ctx context.Context,
	vault credentialUsecase.CredentialUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	count, err := vault.DeactivateExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate expired credentials: %w", err)
	}

	logger.Info("expired credentials deactivated", slog.Int("count", count))

	if format == "json" {
		return outputJSON(writer, map[string]any{"deactivated_count": count})
	}

	_, _ = fmt.Fprintf(writer, "Deactivated %d expired credential(s)\n", count)
	return nil
}

func outputSummary(writer io.Writer, title string, s *credentialDomain.Summary, format string) error {
	if format == "json" {
		return outputJSON(writer, s)
	}

	_, _ = fmt.Fprintln(writer, title)
	writeMetadataText(writer, s.ID, s.UserID, s.VendorID, s.Type, s.Metadata)
	_, _ = fmt.Fprintf(writer, "Encryption Version: %d\n", s.EncryptionVersion)
	return nil
}

func writeMetadataText(
	writer io.Writer,
	id, userID, vendorID string,
	credType credentialDomain.Type,
	m credentialDomain.Metadata,
) {
	_, _ = fmt.Fprintf(writer, "ID:            %s\n", id)
	_, _ = fmt.Fprintf(writer, "User:          %s\n", userID)
	_, _ = fmt.Fprintf(writer, "Vendor:        %s\n", vendorID)
	_, _ = fmt.Fprintf(writer, "Type:          %s\n", credType)
	if m.Label != "" {
		_, _ = fmt.Fprintf(writer, "Label:         %s\n", m.Label)
	}
	_, _ = fmt.Fprintf(writer, "Active:        %t\n", m.IsActive)
	_, _ = fmt.Fprintf(writer, "Created At:    %s\n", formatTime(&m.CreatedAt))
	_, _ = fmt.Fprintf(writer, "Updated At:    %s\n", formatTime(&m.UpdatedAt))
	_, _ = fmt.Fprintf(writer, "Expires At:    %s\n", formatTime(m.ExpiresAt))
	_, _ = fmt.Fprintf(writer, "Access Count:  %d\n", m.AccessCount)
}
