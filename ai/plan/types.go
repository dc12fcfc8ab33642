// Package plan implements the action-plan state machine: building a
// model-proposed batch of bookkeeping operations into a persisted plan,
// and driving approved plans through idempotent external writes.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType identifies one kind of side-effecting bookkeeping operation.
type ActionType string

const (
	ActionCreateInvoice       ActionType = "create_invoice"
	ActionBookSupplierInvoice ActionType = "book_supplier_invoice"
	ActionCreateJournalEntry  ActionType = "create_journal_entry"
	ActionExportSIE           ActionType = "export_sie"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionCreateInvoice, ActionBookSupplierInvoice, ActionCreateJournalEntry, ActionExportSIE:
		return true
	}
	return false
}

// ResourceType returns the bookkeeping resource an action of this type writes.
func (t ActionType) ResourceType() string {
	switch t {
	case ActionCreateInvoice:
		return "invoice"
	case ActionBookSupplierInvoice:
		return "supplier_invoice"
	case ActionCreateJournalEntry:
		return "voucher"
	case ActionExportSIE:
		return "sie_export"
	default:
		return "unknown"
	}
}

// Action status values. Executing, completed and failed are terminal
// transitions per action: an action is attempted at most once.
const (
	ActionStatusPending   = "pending"
	ActionStatusExecuting = "executing"
	ActionStatusCompleted = "completed"
	ActionStatusFailed    = "failed"
)

// defaultActionConfidence is assigned when the proposal omits confidence.
const defaultActionConfidence = 0.8

// LedgerRow is one debit/credit line of a bookkeeping ledger entry.
// Pure value, no identity.
type LedgerRow struct {
	Account     string  `json:"account"`
	AccountName string  `json:"account_name"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Comment     string  `json:"comment,omitempty"`
}

// Action is one proposed operation within a plan.
type Action struct {
	ID          string         `json:"id"` // planID + "-" + ordinal
	ActionType  ActionType     `json:"action_type"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	PostingRows []LedgerRow    `json:"posting_rows"`
	Confidence  float64        `json:"confidence"`
	Status      string         `json:"status"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ExecutionResult is the per-action outcome recorded after execution.
type ExecutionResult struct {
	ActionID string `json:"action_id"`
	Success  bool   `json:"success"`
	Result   string `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ActionPlan is a proposed, human-approved batch of side-effecting
// operations. Created once per proposal and mutated exactly twice:
// creation, then the terminal update after a single decision.
type ActionPlan struct {
	Type             string            `json:"type"` // always "action_plan"
	PlanID           string            `json:"plan_id"`
	Status           string            `json:"status"`
	Summary          string            `json:"summary"`
	Assumptions      []string          `json:"assumptions"`
	Actions          []*Action         `json:"actions"`
	ExecutionResults []ExecutionResult `json:"execution_results,omitempty"`
}

// Marshal serializes the plan to its persisted JSON shape.
func (p *ActionPlan) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPlan parses a persisted plan payload.
func UnmarshalPlan(payload []byte) (*ActionPlan, error) {
	var p ActionPlan
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan payload: %w", err)
	}
	return &p, nil
}

// ActionSpec is one raw action from the model's tool call, before
// validation. Loosely typed on purpose: the model's output is not trusted.
type ActionSpec struct {
	ActionType  string         `json:"action_type"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	PostingRows []LedgerRow    `json:"posting_rows"`
	Confidence  *float64       `json:"confidence"`
}

// Proposal is the model-proposed batch, extracted from a tool call.
type Proposal struct {
	Summary     string       `json:"summary"`
	Actions     []ActionSpec `json:"actions"`
	Assumptions []string     `json:"assumptions"`
}

// requiredParams lists the parameter fields each action type must carry.
// Validation happens in the constructor, before the state machine ever
// sees the action.
var requiredParams = map[ActionType][]string{
	ActionCreateInvoice:       {"customer_number", "rows"},
	ActionBookSupplierInvoice: {"supplier_number", "total_amount"},
	ActionCreateJournalEntry:  {"description"},
	ActionExportSIE:           {"fiscal_year"},
}

// newAction validates a raw spec and produces the typed action for the
// given plan and ordinal. Malformed shapes are rejected here.
func newAction(planID string, ordinal int, spec ActionSpec) (*Action, error) {
	actionType := ActionType(strings.TrimSpace(spec.ActionType))
	if !actionType.Valid() {
		return nil, &ValidationError{Field: "action_type", Message: fmt.Sprintf("unknown action type %q", spec.ActionType)}
	}
	if strings.TrimSpace(spec.Description) == "" {
		return nil, &ValidationError{Field: "description", Message: "description is required"}
	}

	params := spec.Parameters
	if params == nil {
		params = map[string]any{}
	}
	for _, field := range requiredParams[actionType] {
		if _, ok := params[field]; !ok {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s requires parameter %q", actionType, field),
			}
		}
	}

	if actionType == ActionCreateJournalEntry && len(spec.PostingRows) > 0 {
		if err := validatePostingRows(spec.PostingRows); err != nil {
			return nil, err
		}
	}

	confidence := defaultActionConfidence
	if spec.Confidence != nil && *spec.Confidence >= 0 && *spec.Confidence <= 1 {
		confidence = *spec.Confidence
	}
	postingRows := spec.PostingRows
	if postingRows == nil {
		postingRows = []LedgerRow{}
	}

	return &Action{
		ID:          fmt.Sprintf("%s-%d", planID, ordinal),
		ActionType:  actionType,
		Description: spec.Description,
		Parameters:  params,
		PostingRows: postingRows,
		Confidence:  confidence,
		Status:      ActionStatusPending,
	}, nil
}

// validatePostingRows checks each row has an account and one-sided amount,
// and that the rows balance.
func validatePostingRows(rows []LedgerRow) error {
	var debit, credit float64
	for i, row := range rows {
		if row.Account == "" {
			return &ValidationError{Field: "posting_rows", Message: fmt.Sprintf("row %d is missing an account", i)}
		}
		if row.Debit != 0 && row.Credit != 0 {
			return &ValidationError{Field: "posting_rows", Message: fmt.Sprintf("row %d has both debit and credit", i)}
		}
		debit += row.Debit
		credit += row.Credit
	}
	// Tolerate sub-öre float noise.
	if diff := debit - credit; diff > 0.005 || diff < -0.005 {
		return &ValidationError{Field: "posting_rows", Message: fmt.Sprintf("rows do not balance: debit %.2f, credit %.2f", debit, credit)}
	}
	return nil
}
