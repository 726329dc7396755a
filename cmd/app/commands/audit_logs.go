package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
	auditUsecase "github.com/allisson/credvault/internal/audit/usecase"
)

// AuditQueryParams carries the raw audit filter flags.
type AuditQueryParams struct {
	CredentialID string
	ActorUserID  string
	TargetUserID string
	Action       string
	// Success is "", "true" or "false".
	Success   string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// Options converts the flags into query options.
func (p AuditQueryParams) Options() (auditDomain.QueryOptions, error) {
	opts := auditDomain.QueryOptions{
		CredentialID: p.CredentialID,
		ActorUserID:  p.ActorUserID,
		TargetUserID: p.TargetUserID,
		Limit:        p.Limit,
		Offset:       p.Offset,
	}

	if p.Action != "" {
		action := auditDomain.Action(p.Action)
		if !action.Valid() {
			return opts, fmt.Errorf("invalid action: %s", p.Action)
		}
		opts.Action = action
	}

	if p.Success != "" {
		success, err := strconv.ParseBool(p.Success)
		if err != nil {
			return opts, fmt.Errorf("invalid success filter: %s", p.Success)
		}
		opts.Success = &success
	}

	var err error
	if opts.StartDate, err = parseOptionalDate(p.StartDate); err != nil {
		return opts, fmt.Errorf("invalid start date: %w", err)
	}
	if opts.EndDate, err = parseOptionalDate(p.EndDate); err != nil {
		return opts, fmt.Errorf("invalid end date: %w", err)
	}
	if opts.StartDate != nil && opts.EndDate != nil && !opts.EndDate.After(*opts.StartDate) {
		return opts, fmt.Errorf("end date must be after start date")
	}

	if opts.Limit < 0 || opts.Offset < 0 {
		return opts, fmt.Errorf("limit and offset must not be negative")
	}
	return opts, nil
}

// RunQueryAuditLogs prints the audit entries matching params, newest first.
func RunQueryAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUsecase.AuditLogUseCase,
	writer io.Writer,
	params AuditQueryParams,
	format string,
) error {
	opts, err := params.Options()
	if err != nil {
		return err
	}

	entries, err := auditLogUseCase.Query(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to query audit logs: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, auditEntriesJSON(entries))
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(writer, "No audit logs found")
		return nil
	}

	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed: " + e.ErrorMessage
		}
		_, _ = fmt.Fprintf(writer, "%s  %s  %s  actor=%s  target=%s  credential=%s  %s\n",
			e.Timestamp.UTC().Format(time.RFC3339), e.ID, e.Action, e.ActorUserID, e.TargetUserID,
			orDash(e.CredentialID), status)
	}
	return nil
}

// RunVerifyAuditLogs checks the HMAC signature of every audit entry matching params.
// Any invalid signature makes the command fail.
func RunVerifyAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUsecase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params AuditQueryParams,
	format string,
) error {
	opts, err := params.Options()
	if err != nil {
		return err
	}

	logger.Info("verifying audit logs",
		slog.String("start_date", params.StartDate),
		slog.String("end_date", params.EndDate),
	)

	report, err := auditLogUseCase.Verify(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to verify audit logs: %w", err)
	}

	if format == "json" {
		if err := outputJSON(writer, map[string]any{
			"total_checked": report.Total,
			"valid_count":   report.Valid,
			"invalid_count": len(report.Invalid),
			"invalid_logs":  report.Invalid,
			"passed":        len(report.Invalid) == 0,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Int("total_checked", report.Total),
		slog.Int("valid", report.Valid),
		slog.Int("invalid", len(report.Invalid)),
	)

	if len(report.Invalid) > 0 {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", len(report.Invalid))
	}
	return nil
}

func outputVerifyText(writer io.Writer, report *auditDomain.VerificationReport) {
	_, _ = fmt.Fprintf(writer, "Audit Log Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "=================================\n\n")
	_, _ = fmt.Fprintf(writer, "Total Checked:  %d\n", report.Total)
	_, _ = fmt.Fprintf(writer, "Valid:          %d\n", report.Valid)
	_, _ = fmt.Fprintf(writer, "Invalid:        %d\n\n", len(report.Invalid))

	switch {
	case len(report.Invalid) > 0:
		_, _ = fmt.Fprintf(writer, "WARNING: %d log(s) failed integrity check!\n\n", len(report.Invalid))
		_, _ = fmt.Fprintf(writer, "Invalid Log IDs:\n")
		for _, id := range report.Invalid {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.Total == 0:
		_, _ = fmt.Fprintf(writer, "Status: No logs found for the given filters\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}

func auditEntriesJSON(entries []*auditDomain.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":             e.ID,
			"timestamp":      e.Timestamp.UTC(),
			"action":         e.Action,
			"credential_id":  e.CredentialID,
			"actor_user_id":  e.ActorUserID,
			"target_user_id": e.TargetUserID,
			"vendor_id":      e.VendorID,
			"ip_address":     e.IPAddress,
			"user_agent":     e.UserAgent,
			"success":        e.Success,
			"error_message":  e.ErrorMessage,
			"context":        e.Context,
		})
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
