package plan

import (
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

// planIDPrefix namespaces plan ids in logs and idempotency keys.
const planIDPrefix = "plan_"

// Build converts a model proposal into a pending plan with a fresh unique
// plan id and per-ordinal action ids. No network calls; persisting the
// result is the caller's job.
func Build(proposal *Proposal) (*ActionPlan, error) {
	if proposal == nil {
		return nil, &ValidationError{Message: "proposal is required"}
	}
	if len(proposal.Actions) == 0 {
		return nil, &ValidationError{Field: "actions", Message: "proposal has no actions"}
	}
	if strings.TrimSpace(proposal.Summary) == "" {
		return nil, &ValidationError{Field: "summary", Message: "summary is required"}
	}

	planID := planIDPrefix + shortuuid.New()

	actions := make([]*Action, 0, len(proposal.Actions))
	for i, spec := range proposal.Actions {
		action, err := newAction(planID, i, spec)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	assumptions := proposal.Assumptions
	if assumptions == nil {
		assumptions = []string{}
	}

	return &ActionPlan{
		Type:        "action_plan",
		PlanID:      planID,
		Status:      "pending",
		Summary:     proposal.Summary,
		Assumptions: assumptions,
		Actions:     actions,
	}, nil
}
