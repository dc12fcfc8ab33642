package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/bokpilot/bokpilot/store"
)

func (d *DB) CreateAuditLog(ctx context.Context, entry *store.AuditLog) (*store.AuditLog, error) {
	fields := []string{"user_id", "company_id", "actor_type", "action", "resource_type", "resource_id", "new_state"}
	args := []any{entry.UserID, entry.CompanyID, entry.ActorType, entry.Action, entry.ResourceType, entry.ResourceID, entry.NewState}

	// new_state is JSONB - always provide a valid document
	if len(entry.NewState) == 0 {
		args[6] = []byte("null")
	}

	stmt := `INSERT INTO audit_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_at`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create audit_log: %w", err)
	}
	return entry, nil
}

func (d *DB) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.ResourceType != nil {
		where, args = append(where, "resource_type = "+placeholder(len(args)+1)), append(args, *find.ResourceType)
	}

	query := `
		SELECT id, user_id, company_id, actor_type, action, resource_type, resource_id, new_state, created_at
		FROM audit_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
		if find.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit_logs: %w", err)
	}
	defer rows.Close()

	list := []*store.AuditLog{}
	for rows.Next() {
		var entry store.AuditLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.CompanyID,
			&entry.ActorType,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.NewState,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit_log: %w", err)
		}
		list = append(list, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit_logs: %w", err)
	}
	return list, nil
}
