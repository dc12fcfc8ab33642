package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokpilot/bokpilot/store"
)

type fakePlanStore struct {
	records   map[string]*store.ActionPlanRecord
	getErr    error
	updateErr error
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{records: map[string]*store.ActionPlanRecord{}}
}

func (f *fakePlanStore) CreateActionPlan(_ context.Context, record *store.ActionPlanRecord) (*store.ActionPlanRecord, error) {
	f.records[record.MessageID] = record
	return record, nil
}

func (f *fakePlanStore) GetActionPlan(_ context.Context, messageID string) (*store.ActionPlanRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	record, ok := f.records[messageID]
	if !ok {
		return nil, nil
	}
	return record, nil
}

func (f *fakePlanStore) UpdateActionPlan(_ context.Context, update *store.UpdateActionPlan) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	record, ok := f.records[update.MessageID]
	if !ok {
		return errors.New("no plan to update")
	}
	record.Status = update.Status
	record.Payload = update.Payload
	return nil
}

type fakeAuditStore struct {
	entries   []*store.AuditLog
	createErr error
}

func (f *fakeAuditStore) CreateAuditLog(_ context.Context, entry *store.AuditLog) (*store.AuditLog, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeAuditStore) ListAuditLogs(_ context.Context, _ *store.FindAuditLog) ([]*store.AuditLog, error) {
	return f.entries, nil
}

// scriptedHandler fails the action ids it is told to and records every
// invocation.
type scriptedHandler struct {
	actionType ActionType
	failWith   map[string]error
	calls      []*HandlerRequest
}

func (h *scriptedHandler) ActionType() ActionType { return h.actionType }

func (h *scriptedHandler) Execute(_ context.Context, req *HandlerRequest) (*HandlerResult, error) {
	h.calls = append(h.calls, req)
	if err, ok := h.failWith[req.Action.ID]; ok {
		return nil, err
	}
	return &HandlerResult{
		Summary:    "wrote " + req.Action.ID,
		ResourceID: "res-" + req.Action.ID,
		NewState:   json.RawMessage(`{"ok":true}`),
	}, nil
}

func journalProposal(actionCount int) *Proposal {
	p := &Proposal{Summary: "bokfor verifikationer"}
	for i := 0; i < actionCount; i++ {
		p.Actions = append(p.Actions, ActionSpec{
			ActionType:  "create_journal_entry",
			Description: "verifikation",
			Parameters:  map[string]any{"description": "rattelse"},
		})
	}
	return p
}

// setupEngine builds a pending plan, persists it and wires the handler.
func setupEngine(t *testing.T, actionCount int) (*Engine, *fakePlanStore, *fakeAuditStore, *scriptedHandler, *ActionPlan) {
	t.Helper()

	built, err := Build(journalProposal(actionCount))
	require.NoError(t, err)

	payload, err := built.Marshal()
	require.NoError(t, err)

	plans := newFakePlanStore()
	plans.records["msg_1"] = &store.ActionPlanRecord{
		MessageID: "msg_1",
		PlanID:    built.PlanID,
		UserID:    7,
		CompanyID: "acme",
		Status:    store.PlanStatusPending,
		Payload:   payload,
	}

	audits := &fakeAuditStore{}
	handler := &scriptedHandler{actionType: ActionCreateJournalEntry, failWith: map[string]error{}}

	engine := NewEngine(plans, audits)
	engine.RegisterHandler(handler)
	return engine, plans, audits, handler, built
}

func decision(d Decision) *DecisionRequest {
	return &DecisionRequest{MessageID: "msg_1", UserID: 7, CompanyID: "acme", Decision: d}
}

func TestSubmitDecisionApprovedAllSucceed(t *testing.T) {
	engine, plans, audits, handler, built := setupEngine(t, 2)

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	assert.Equal(t, store.PlanStatusExecuted, outcome.Status)
	assert.Equal(t, 2, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.FailCount)
	assert.Equal(t, built.PlanID, outcome.PlanID)
	assert.Contains(t, outcome.Summary, "All 2 actions completed.")
	assert.Len(t, handler.calls, 2)

	// Terminal state persisted.
	assert.Equal(t, store.PlanStatusExecuted, plans.records["msg_1"].Status)

	// One audit entry per action plus the decision entry.
	require.Len(t, audits.entries, 3)
	assert.Equal(t, "ai", audits.entries[0].ActorType)
	assert.Equal(t, "voucher", audits.entries[0].ResourceType)
	last := audits.entries[2]
	assert.Equal(t, "user", last.ActorType)
	assert.Equal(t, "plan_decision", last.Action)
	assert.Equal(t, built.PlanID, last.ResourceID)
}

func TestSubmitDecisionPartialFailure(t *testing.T) {
	engine, plans, audits, handler, built := setupEngine(t, 3)
	handler.failWith[built.PlanID+"-1"] = &ActionWriteError{
		Operation:  "/vouchers",
		StatusCode: 422,
		Message:    "unbalanced voucher",
	}

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	assert.Equal(t, store.PlanStatusPartial, outcome.Status)
	assert.Equal(t, 2, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailCount)
	assert.Contains(t, outcome.Summary, "2 of 3 actions completed, 1 failed.")
	assert.Contains(t, outcome.Summary, "FAILED")

	// All three actions attempted: a per-action failure never aborts.
	assert.Len(t, handler.calls, 3)

	require.Len(t, outcome.Results, 3)
	assert.True(t, outcome.Results[0].Success)
	assert.False(t, outcome.Results[1].Success)
	assert.True(t, outcome.Results[2].Success)

	// Audit trail has entries only for the successful writes + decision.
	assert.Len(t, audits.entries, 3)
	assert.Equal(t, store.PlanStatusPartial, plans.records["msg_1"].Status)
}

func TestSubmitDecisionRejected(t *testing.T) {
	engine, plans, audits, handler, _ := setupEngine(t, 2)

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionRejected), nil)
	require.NoError(t, err)

	assert.Equal(t, store.PlanStatusRejected, outcome.Status)
	assert.Equal(t, "Plan rejected. No actions were executed.", outcome.Summary)

	// Zero external calls, zero audit entries.
	assert.Empty(t, handler.calls)
	assert.Empty(t, audits.entries)
	assert.Equal(t, store.PlanStatusRejected, plans.records["msg_1"].Status)
}

func TestSubmitDecisionInfrastructureAbort(t *testing.T) {
	engine, plans, _, handler, built := setupEngine(t, 3)
	handler.failWith[built.PlanID+"-1"] = &ActionWriteError{
		Operation:  "/vouchers",
		StatusCode: 503,
		Message:    "maintenance window",
	}

	_, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))

	// Aborted after the failing action: the third never ran.
	assert.Len(t, handler.calls, 2)

	// No terminal update: the plan stays pending and can be retried.
	assert.Equal(t, store.PlanStatusPending, plans.records["msg_1"].Status)
}

func TestSubmitDecisionTimeoutFailsOnlyThatAction(t *testing.T) {
	engine, plans, audits, handler, built := setupEngine(t, 2)
	handler.failWith[built.PlanID+"-0"] = fmt.Errorf("POST /vouchers: %w", context.DeadlineExceeded)

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	// A timed-out write is a per-action failure: the second action still
	// runs and the plan reaches a terminal state.
	assert.Equal(t, store.PlanStatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailCount)
	assert.Len(t, handler.calls, 2)

	require.Len(t, outcome.Results, 2)
	assert.False(t, outcome.Results[0].Success)
	assert.Contains(t, outcome.Results[0].Error, "deadline exceeded")
	assert.True(t, outcome.Results[1].Success)

	// Audit for the successful write plus the decision entry.
	assert.Len(t, audits.entries, 2)
	assert.Equal(t, store.PlanStatusPartial, plans.records["msg_1"].Status)
}

func TestSubmitDecisionTerminalResubmit(t *testing.T) {
	engine, _, audits, handler, _ := setupEngine(t, 1)

	first, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)
	require.Equal(t, store.PlanStatusExecuted, first.Status)
	callsAfterFirst := len(handler.calls)
	auditsAfterFirst := len(audits.entries)

	second, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	assert.True(t, second.AlreadyTerminal)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.SuccessCount, second.SuccessCount)

	// No re-execution, no new audit entries.
	assert.Equal(t, callsAfterFirst, len(handler.calls))
	assert.Equal(t, auditsAfterFirst, len(audits.entries))
}

func TestSubmitDecisionRejectedThenApproveIsNoOp(t *testing.T) {
	engine, _, _, handler, _ := setupEngine(t, 1)

	_, err := engine.SubmitDecision(context.Background(), decision(DecisionRejected), nil)
	require.NoError(t, err)

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyTerminal)
	assert.Equal(t, store.PlanStatusRejected, outcome.Status)
	assert.Empty(t, handler.calls)
}

func TestSubmitDecisionAlwaysFailingActionRunsOnce(t *testing.T) {
	engine, _, _, handler, built := setupEngine(t, 1)
	handler.failWith[built.PlanID+"-0"] = &ActionWriteError{
		Operation:  "/vouchers",
		StatusCode: 422,
		Message:    "rejected every time",
	}

	outcome, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	// The loop visits each action exactly once; a deterministic failure
	// terminates in the partial state instead of retrying forever.
	assert.Len(t, handler.calls, 1)
	assert.Equal(t, store.PlanStatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.FailCount)
}

func TestSubmitDecisionModifiedAppliesOverrides(t *testing.T) {
	engine, _, _, handler, built := setupEngine(t, 1)

	req := decision(DecisionModified)
	req.Overrides = map[string]map[string]any{
		built.PlanID + "-0": {"description": "justerad rattelse", "date": "2026-01-15"},
	}

	_, err := engine.SubmitDecision(context.Background(), req, nil)
	require.NoError(t, err)

	require.Len(t, handler.calls, 1)
	params := handler.calls[0].Action.Parameters
	assert.Equal(t, "justerad rattelse", params["description"])
	assert.Equal(t, "2026-01-15", params["date"])
}

func TestSubmitDecisionPassesIdempotencyKey(t *testing.T) {
	engine, _, _, handler, built := setupEngine(t, 1)

	_, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)

	require.Len(t, handler.calls, 1)
	want := IdempotencyKey("acme", ActionCreateJournalEntry, built.PlanID+"-0")
	assert.Equal(t, want, handler.calls[0].IdempotencyKey)
}

func TestSubmitDecisionValidation(t *testing.T) {
	engine, _, _, _, _ := setupEngine(t, 1)

	_, err := engine.SubmitDecision(context.Background(), decision("maybe"), nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSubmitDecisionPlanNotFound(t *testing.T) {
	engine := NewEngine(newFakePlanStore(), &fakeAuditStore{})

	_, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSubmitDecisionStoreFailureIsInfrastructure(t *testing.T) {
	plans := newFakePlanStore()
	plans.getErr = errors.New("connection reset")
	engine := NewEngine(plans, &fakeAuditStore{})

	_, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))
}

func TestSubmitDecisionMissingHandlerFailsAction(t *testing.T) {
	engine, _, _, _, _ := setupEngine(t, 1)
	// Fresh engine without the handler wired.
	engineNoHandler := NewEngine(engine.plans, engine.audits)

	outcome, err := engineNoHandler.SubmitDecision(context.Background(), decision(DecisionApproved), nil)
	require.NoError(t, err)
	assert.Equal(t, store.PlanStatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.FailCount)
	assert.Contains(t, outcome.Results[0].Error, "no handler registered")
}

func TestSubmitDecisionProgressEvents(t *testing.T) {
	engine, _, _, handler, built := setupEngine(t, 2)
	handler.failWith[built.PlanID+"-1"] = &ActionWriteError{
		Operation:  "/vouchers",
		StatusCode: 422,
		Message:    "nope",
	}

	var events []ProgressEvent
	_, err := engine.SubmitDecision(context.Background(), decision(DecisionApproved), func(event ProgressEvent) {
		events = append(events, event)
	})
	require.NoError(t, err)

	// executing+completed for the first action, executing+failed for the
	// second, then the terminal summary.
	require.Len(t, events, 5)
	assert.Equal(t, ProgressExecuting, events[0].Status)
	assert.Equal(t, ProgressCompleted, events[1].Status)
	assert.Equal(t, ProgressExecuting, events[2].Status)
	assert.Equal(t, ProgressFailed, events[3].Status)
	assert.Equal(t, ProgressTerminal, events[4].Status)
	assert.Equal(t, 2, events[4].Total)
}
