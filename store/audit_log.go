package store

import (
	"context"
	"time"
)

// AuditLog is one immutable record of a side-effecting decision.
// Rows are append-only; there is deliberately no update or delete.
type AuditLog struct {
	ID           int64
	UserID       int32
	CompanyID    string
	ActorType    string // "ai" or "user"
	Action       string // verb matching the operation semantics, e.g. "create_invoice"
	ResourceType string
	ResourceID   string
	NewState     []byte // JSON snapshot of the resource after the write
	CreatedAt    time.Time
}

// FindAuditLog specifies the conditions for listing audit entries.
type FindAuditLog struct {
	UserID       *int32
	CompanyID    *string
	ResourceType *string
	Limit        int
	Offset       int
}

// AuditLogStore defines append-only audit persistence.
type AuditLogStore interface {
	// CreateAuditLog appends one entry. The entry is immutable once written.
	CreateAuditLog(ctx context.Context, entry *AuditLog) (*AuditLog, error)

	// ListAuditLogs returns entries matching the filter, newest first.
	ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error)
}
