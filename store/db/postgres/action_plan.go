package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bokpilot/bokpilot/store"
)

func (d *DB) CreateActionPlan(ctx context.Context, create *store.ActionPlanRecord) (*store.ActionPlanRecord, error) {
	fields := []string{"message_id", "plan_id", "user_id", "company_id", "status", "payload"}
	args := []any{create.MessageID, create.PlanID, create.UserID, create.CompanyID, create.Status, create.Payload}

	stmt := `INSERT INTO action_plan (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING created_at, updated_at`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.CreatedAt, &create.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create action_plan: %w", err)
	}
	return create, nil
}

func (d *DB) GetActionPlan(ctx context.Context, messageID string) (*store.ActionPlanRecord, error) {
	query := `
		SELECT message_id, plan_id, user_id, company_id, status, payload, created_at, updated_at
		FROM action_plan
		WHERE message_id = $1`

	var record store.ActionPlanRecord
	err := d.db.QueryRowContext(ctx, query, messageID).Scan(
		&record.MessageID,
		&record.PlanID,
		&record.UserID,
		&record.CompanyID,
		&record.Status,
		&record.Payload,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action_plan: %w", err)
	}
	return &record, nil
}

func (d *DB) UpdateActionPlan(ctx context.Context, update *store.UpdateActionPlan) error {
	stmt := `UPDATE action_plan SET status = $1, payload = $2, updated_at = NOW() WHERE message_id = $3`
	result, err := d.db.ExecContext(ctx, stmt, update.Status, update.Payload, update.MessageID)
	if err != nil {
		return fmt.Errorf("failed to update action_plan: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("action_plan not found for message %s", update.MessageID)
	}
	return nil
}
