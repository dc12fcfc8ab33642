package llm

import (
	"encoding/json"
	"fmt"

	"github.com/bokpilot/bokpilot/ai/plan"
)

// ProposeActionPlanTool is the tool the model uses to propose a batch of
// bookkeeping operations for human approval.
const ProposeActionPlanTool = "propose_action_plan"

// ProposeActionPlanDescriptor describes the plan-proposal tool to the model.
var ProposeActionPlanDescriptor = ToolDescriptor{
	Name:        ProposeActionPlanTool,
	Description: "Propose a batch of bookkeeping operations (invoices, supplier invoice bookings, journal entries, SIE exports) for the user to approve before execution.",
	Parameters: `{
		"type": "object",
		"properties": {
			"summary": {"type": "string", "description": "One-paragraph summary of what the plan does"},
			"assumptions": {"type": "array", "items": {"type": "string"}},
			"actions": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"action_type": {"type": "string", "enum": ["create_invoice", "book_supplier_invoice", "create_journal_entry", "export_sie"]},
						"description": {"type": "string"},
						"parameters": {"type": "object"},
						"posting_rows": {
							"type": "array",
							"items": {
								"type": "object",
								"properties": {
									"account": {"type": "string"},
									"account_name": {"type": "string"},
									"debit": {"type": "number"},
									"credit": {"type": "number"},
									"comment": {"type": "string"}
								}
							}
						},
						"confidence": {"type": "number"}
					},
					"required": ["action_type", "description", "parameters"]
				}
			}
		},
		"required": ["summary", "actions"]
	}`,
}

// ExtractProposal finds the plan-proposal tool call in a response and
// parses it. Returns nil when the model proposed nothing.
func ExtractProposal(resp *ChatResponse) (*plan.Proposal, error) {
	if resp == nil {
		return nil, nil
	}
	for _, tc := range resp.ToolCalls {
		if tc.Name != ProposeActionPlanTool {
			continue
		}
		var proposal plan.Proposal
		if err := json.Unmarshal([]byte(tc.Arguments), &proposal); err != nil {
			return nil, fmt.Errorf("failed to parse plan proposal: %w", err)
		}
		return &proposal, nil
	}
	return nil, nil
}
