package store

import (
	"context"
	"time"
)

// Plan status values. Rejected, executed and partial are terminal.
const (
	PlanStatusPending  = "pending"
	PlanStatusRejected = "rejected"
	PlanStatusExecuted = "executed"
	PlanStatusPartial  = "partial"
)

// ActionPlanRecord is the persisted form of a proposed action plan.
// The plan is attached to the chat message that proposed it; the payload
// carries the full structured plan as JSON with the shape
// {type:"action_plan", plan_id, status, summary, actions, assumptions}.
type ActionPlanRecord struct {
	MessageID string
	PlanID    string
	UserID    int32
	CompanyID string
	Status    string
	Payload   []byte // JSON document, authoritative for actions/assumptions
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateActionPlan carries the terminal update applied after a decision.
// A plan record is mutated exactly twice in its lifetime: creation and
// this terminal update.
type UpdateActionPlan struct {
	MessageID string
	Status    string
	Payload   []byte
}

// ActionPlanStore defines plan metadata persistence keyed by message id.
type ActionPlanStore interface {
	// CreateActionPlan persists a freshly built plan in pending state.
	CreateActionPlan(ctx context.Context, record *ActionPlanRecord) (*ActionPlanRecord, error)

	// GetActionPlan returns the plan attached to a message, or nil when absent.
	GetActionPlan(ctx context.Context, messageID string) (*ActionPlanRecord, error)

	// UpdateActionPlan applies the terminal status/payload update.
	UpdateActionPlan(ctx context.Context, update *UpdateActionPlan) error
}
