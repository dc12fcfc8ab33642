package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/bokpilot/bokpilot/store"
)

func (d *DB) CreateMemoryRecord(ctx context.Context, create *store.MemoryRecord) (*store.MemoryRecord, error) {
	fields := []string{"id", "user_id", "company_id", "tier", "content", "importance", "confidence", "expires_at"}
	args := []any{create.ID, create.UserID, create.CompanyID, string(create.Tier), create.Content, create.Importance, create.Confidence, create.ExpiresAt}

	stmt := `INSERT INTO memory_record (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING created_at, updated_at`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.CreatedAt, &create.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create memory_record: %w", err)
	}
	return create, nil
}

func (d *DB) ListMemoryRecords(ctx context.Context, find *store.FindMemoryRecord) ([]*store.MemoryRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.Tier != nil {
		where, args = append(where, "tier = "+placeholder(len(args)+1)), append(args, string(*find.Tier))
	}

	query := `
		SELECT id, user_id, company_id, tier, content, importance, confidence,
			created_at, updated_at, last_used_at, expires_at
		FROM memory_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_at DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
		if find.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory_records: %w", err)
	}
	defer rows.Close()

	list := []*store.MemoryRecord{}
	for rows.Next() {
		var record store.MemoryRecord
		var tier string
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.CompanyID,
			&tier,
			&record.Content,
			&record.Importance,
			&record.Confidence,
			&record.CreatedAt,
			&record.UpdatedAt,
			&record.LastUsedAt,
			&record.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan memory_record: %w", err)
		}
		record.Tier = store.MemoryTier(tier)
		list = append(list, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory_records: %w", err)
	}
	return list, nil
}

func (d *DB) TouchMemoryRecords(ctx context.Context, ids []string, usedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := `UPDATE memory_record SET last_used_at = $1 WHERE id = ANY($2)`
	if _, err := d.db.ExecContext(ctx, stmt, usedAt, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to touch memory_records: %w", err)
	}
	return nil
}

func (d *DB) DeleteMemoryRecord(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM memory_record WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memory_record: %w", err)
	}
	return nil
}
