package repository

import (
	"fmt"
	"strings"

	auditDomain "github.com/allisson/credvault/internal/audit/domain"
)

const auditColumns = `id, created_at, action, credential_id, actor_user_id, target_user_id, vendor_id,
	ip_address, user_agent, success, error_message, context, signature`

// buildListQuery renders the filtered audit query. placeholder returns the bind marker for
// the n-th (1-based) argument so the same builder serves both SQL dialects.
func buildListQuery(opts auditDomain.QueryOptions, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	add := func(column string, op string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s %s %s", column, op, placeholder(len(args))))
	}

	if opts.CredentialID != "" {
		add("credential_id", "=", opts.CredentialID)
	}
	if opts.ActorUserID != "" {
		add("actor_user_id", "=", opts.ActorUserID)
	}
	if opts.TargetUserID != "" {
		add("target_user_id", "=", opts.TargetUserID)
	}
	if opts.Action != "" {
		add("action", "=", string(opts.Action))
	}
	if opts.Success != nil {
		add("success", "=", *opts.Success)
	}
	if opts.StartDate != nil {
		add("created_at", ">=", opts.StartDate.UTC())
	}
	if opts.EndDate != nil {
		add("created_at", "<=", opts.EndDate.UTC())
	}

	query := "SELECT " + auditColumns + " FROM audit_logs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, opts.EffectiveLimit())
	limitMarker := placeholder(len(args))
	args = append(args, opts.Offset)
	offsetMarker := placeholder(len(args))

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %s OFFSET %s", limitMarker, offsetMarker)
	return query, args
}

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func mysqlPlaceholder(int) string { return "?" }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
