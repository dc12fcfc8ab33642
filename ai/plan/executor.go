package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bokpilot/bokpilot/ai/metrics"
	"github.com/bokpilot/bokpilot/store"
)

// Decision is a user's verdict on a pending plan.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionModified Decision = "modified"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionModified || d == DecisionRejected
}

// HandlerRequest is the input to an action handler.
type HandlerRequest struct {
	Action         *Action
	IdempotencyKey string
	UserID         int32
	CompanyID      string
}

// HandlerResult is a successful handler outcome. The engine treats the
// payload as opaque beyond the summary and the audit snapshot.
type HandlerResult struct {
	Summary    string          // human-readable result line
	ResourceID string          // platform identifier of the written resource
	NewState   json.RawMessage // snapshot for the audit entry
}

// Handler performs the external writes for one action type.
type Handler interface {
	ActionType() ActionType
	Execute(ctx context.Context, req *HandlerRequest) (*HandlerResult, error)
}

// DecisionRequest is one decision submission against a pending plan.
type DecisionRequest struct {
	MessageID string
	UserID    int32
	CompanyID string
	Decision  Decision
	// Overrides maps action id to parameter overrides, applied only when
	// Decision is "modified". Only the overridden fields change.
	Overrides map[string]map[string]any
}

// Outcome is the aggregate result of a decision submission.
type Outcome struct {
	PlanID          string
	Status          string
	SuccessCount    int
	FailCount       int
	Results         []ExecutionResult
	Summary         string
	AlreadyTerminal bool
}

// Engine drives approved plans through their handlers sequentially,
// aggregates results and reports progress. One instance serves all plans;
// per-plan execution is single-threaded by construction (only the
// decision-submit path triggers it).
type Engine struct {
	plans    store.ActionPlanStore
	audits   store.AuditLogStore
	handlers map[ActionType]Handler
}

// NewEngine creates an execution engine over the given stores.
func NewEngine(plans store.ActionPlanStore, audits store.AuditLogStore) *Engine {
	return &Engine{
		plans:    plans,
		audits:   audits,
		handlers: make(map[ActionType]Handler),
	}
}

// RegisterHandler installs the handler for its action type.
func (e *Engine) RegisterHandler(h Handler) {
	e.handlers[h.ActionType()] = h
}

// SubmitDecision applies a user decision to the plan attached to a message.
// Rejection is terminal with zero external calls and zero audit entries.
// Approval (or modification) runs every action sequentially to a terminal
// per-action state; per-action failures never abort the batch, only an
// infrastructure failure does. A decision against an already-terminal plan
// returns the stored outcome unchanged.
func (e *Engine) SubmitDecision(ctx context.Context, req *DecisionRequest, progress ProgressFunc) (*Outcome, error) {
	if !req.Decision.Valid() {
		return nil, &ValidationError{Field: "decision", Message: fmt.Sprintf("unknown decision %q", req.Decision)}
	}

	record, err := e.plans.GetActionPlan(ctx, req.MessageID)
	if err != nil {
		return nil, &InfrastructureError{Cause: errors.Wrap(err, "failed to load plan")}
	}
	if record == nil {
		return nil, &NotFoundError{Resource: "plan for message", ID: req.MessageID}
	}

	p, err := UnmarshalPlan(record.Payload)
	if err != nil {
		return nil, err
	}

	// Plan-level idempotency: a terminal plan never re-executes. Distinct
	// from per-write idempotency keys, which defend double submission races
	// that arrive before the terminal state is persisted.
	if record.Status != store.PlanStatusPending {
		outcome := outcomeFromPlan(p)
		outcome.AlreadyTerminal = true
		progress.emit(ProgressEvent{Status: ProgressTerminal, Result: outcome.Summary})
		return outcome, nil
	}

	if req.Decision == DecisionRejected {
		return e.reject(ctx, req, p, progress)
	}
	return e.execute(ctx, req, p, progress)
}

func (e *Engine) reject(ctx context.Context, req *DecisionRequest, p *ActionPlan, progress ProgressFunc) (*Outcome, error) {
	p.Status = store.PlanStatusRejected
	if err := e.persist(ctx, req.MessageID, p); err != nil {
		return nil, err
	}

	metrics.PlanDecisions.WithLabelValues(string(DecisionRejected), p.Status).Inc()
	slog.Info("plan rejected", "plan_id", p.PlanID, "user_id", req.UserID)

	summary := "Plan rejected. No actions were executed."
	progress.emit(ProgressEvent{Status: ProgressTerminal, Result: summary})
	return &Outcome{
		PlanID:  p.PlanID,
		Status:  p.Status,
		Summary: summary,
		Results: []ExecutionResult{},
	}, nil
}

func (e *Engine) execute(ctx context.Context, req *DecisionRequest, p *ActionPlan, progress ProgressFunc) (*Outcome, error) {
	started := time.Now()

	if req.Decision == DecisionModified {
		applyOverrides(p, req.Overrides)
	}

	total := len(p.Actions)
	results := make([]ExecutionResult, 0, total)
	successCount, failCount := 0, 0

	for i, action := range p.Actions {
		step := i + 1
		progress.emit(ProgressEvent{
			Step:        step,
			Total:       total,
			ActionID:    action.ID,
			Description: action.Description,
			Status:      ProgressExecuting,
		})
		action.Status = ActionStatusExecuting

		result, err := e.runAction(ctx, req, action)
		if err != nil {
			if IsInfrastructure(err) {
				// Not a rejection of this specific write: the platform or
				// store is unreachable, so the remaining actions cannot
				// meaningfully proceed. Abort and surface top-level.
				slog.Error("plan execution aborted",
					"plan_id", p.PlanID,
					"action_id", action.ID,
					"error", err)
				var infra *InfrastructureError
				if errors.As(err, &infra) {
					return nil, infra
				}
				return nil, &InfrastructureError{Cause: err}
			}

			action.Status = ActionStatusFailed
			action.Error = err.Error()
			results = append(results, ExecutionResult{ActionID: action.ID, Success: false, Error: err.Error()})
			failCount++
			metrics.ActionExecutions.WithLabelValues(string(action.ActionType), "failed").Inc()
			slog.Warn("action failed", "plan_id", p.PlanID, "action_id", action.ID, "error", err)
			progress.emit(ProgressEvent{
				Step:        step,
				Total:       total,
				ActionID:    action.ID,
				Description: action.Description,
				Status:      ProgressFailed,
				Error:       err.Error(),
			})
			continue
		}

		action.Status = ActionStatusCompleted
		action.Result = result.Summary
		results = append(results, ExecutionResult{ActionID: action.ID, Success: true, Result: result.Summary})
		successCount++
		metrics.ActionExecutions.WithLabelValues(string(action.ActionType), "completed").Inc()
		progress.emit(ProgressEvent{
			Step:        step,
			Total:       total,
			ActionID:    action.ID,
			Description: action.Description,
			Status:      ProgressCompleted,
			Result:      result.Summary,
		})
	}

	if failCount == 0 {
		p.Status = store.PlanStatusExecuted
	} else {
		p.Status = store.PlanStatusPartial
	}
	p.ExecutionResults = results

	if err := e.persist(ctx, req.MessageID, p); err != nil {
		return nil, err
	}
	if err := e.auditDecision(ctx, req, p, successCount, failCount); err != nil {
		return nil, err
	}

	metrics.PlanDecisions.WithLabelValues(string(req.Decision), p.Status).Inc()
	metrics.PlanExecutionDuration.Observe(time.Since(started).Seconds())

	summary := summarize(p, successCount, failCount)
	progress.emit(ProgressEvent{
		Step:   total,
		Total:  total,
		Status: ProgressTerminal,
		Result: summary,
	})
	slog.Info("plan execution finished",
		"plan_id", p.PlanID,
		"status", p.Status,
		"success", successCount,
		"failed", failCount)

	return &Outcome{
		PlanID:       p.PlanID,
		Status:       p.Status,
		SuccessCount: successCount,
		FailCount:    failCount,
		Results:      results,
		Summary:      summary,
	}, nil
}

// runAction invokes the type-specific handler and appends the per-action
// audit entry on success. A failing audit write is a store failure and
// classifies as infrastructure.
func (e *Engine) runAction(ctx context.Context, req *DecisionRequest, action *Action) (*HandlerResult, error) {
	handler, ok := e.handlers[action.ActionType]
	if !ok {
		return nil, &ActionWriteError{
			Operation: string(action.ActionType),
			Message:   "no handler registered for action type",
		}
	}

	result, err := handler.Execute(ctx, &HandlerRequest{
		Action:         action,
		IdempotencyKey: IdempotencyKey(req.CompanyID, action.ActionType, action.ID),
		UserID:         req.UserID,
		CompanyID:      req.CompanyID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.audits.CreateAuditLog(ctx, &store.AuditLog{
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		ActorType:    "ai",
		Action:       string(action.ActionType),
		ResourceType: action.ActionType.ResourceType(),
		ResourceID:   result.ResourceID,
		NewState:     result.NewState,
	}); err != nil {
		return nil, &InfrastructureError{Cause: errors.Wrap(err, "failed to append audit entry")}
	}
	return result, nil
}

func (e *Engine) persist(ctx context.Context, messageID string, p *ActionPlan) error {
	payload, err := p.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal plan")
	}
	if err := e.plans.UpdateActionPlan(ctx, &store.UpdateActionPlan{
		MessageID: messageID,
		Status:    p.Status,
		Payload:   payload,
	}); err != nil {
		return &InfrastructureError{Cause: errors.Wrap(err, "failed to persist plan update")}
	}
	return nil
}

// auditDecision appends the synthesized decision entry for the whole plan.
func (e *Engine) auditDecision(ctx context.Context, req *DecisionRequest, p *ActionPlan, successCount, failCount int) error {
	snapshot, err := json.Marshal(map[string]any{
		"plan_id":       p.PlanID,
		"decision":      string(req.Decision),
		"action_count":  len(p.Actions),
		"success_count": successCount,
		"fail_count":    failCount,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal decision snapshot")
	}
	if _, err := e.audits.CreateAuditLog(ctx, &store.AuditLog{
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		ActorType:    "user",
		Action:       "plan_decision",
		ResourceType: "action_plan",
		ResourceID:   p.PlanID,
		NewState:     snapshot,
	}); err != nil {
		return &InfrastructureError{Cause: errors.Wrap(err, "failed to append decision audit entry")}
	}
	return nil
}

// applyOverrides merges caller-supplied parameter overrides into the
// matching actions. Only the overridden fields change.
func applyOverrides(p *ActionPlan, overrides map[string]map[string]any) {
	if len(overrides) == 0 {
		return
	}
	for _, action := range p.Actions {
		fields, ok := overrides[action.ID]
		if !ok {
			continue
		}
		if action.Parameters == nil {
			action.Parameters = map[string]any{}
		}
		for k, v := range fields {
			action.Parameters[k] = v
		}
	}
}

// summarize builds the human-readable result message persisted with the
// plan and shown in chat.
func summarize(p *ActionPlan, successCount, failCount int) string {
	var b strings.Builder
	if failCount == 0 {
		fmt.Fprintf(&b, "All %d actions completed.\n", successCount)
	} else {
		fmt.Fprintf(&b, "%d of %d actions completed, %d failed.\n", successCount, successCount+failCount, failCount)
	}
	for _, action := range p.Actions {
		switch action.Status {
		case ActionStatusCompleted:
			fmt.Fprintf(&b, "- OK %s: %s\n", action.Description, action.Result)
		case ActionStatusFailed:
			fmt.Fprintf(&b, "- FAILED %s: %s\n", action.Description, action.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// outcomeFromPlan rebuilds the stored outcome of a terminal plan.
func outcomeFromPlan(p *ActionPlan) *Outcome {
	successCount, failCount := 0, 0
	for _, r := range p.ExecutionResults {
		if r.Success {
			successCount++
		} else {
			failCount++
		}
	}
	summary := "Plan rejected. No actions were executed."
	if p.Status != store.PlanStatusRejected {
		summary = summarize(p, successCount, failCount)
	}
	return &Outcome{
		PlanID:       p.PlanID,
		Status:       p.Status,
		SuccessCount: successCount,
		FailCount:    failCount,
		Results:      p.ExecutionResults,
		Summary:      summary,
	}
}
