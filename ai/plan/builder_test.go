package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProposal() *Proposal {
	return &Proposal{
		Summary: "Fakturera Acme for mars",
		Actions: []ActionSpec{
			{
				ActionType:  "create_invoice",
				Description: "Faktura till Acme AB",
				Parameters: map[string]any{
					"customer_number": "1001",
					"rows": []any{
						map[string]any{"description": "Konsulttimmar", "quantity": 10.0, "unit_price": 1200.0, "vat_rate": 0.25},
					},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	built, err := Build(validProposal())
	require.NoError(t, err)

	assert.Equal(t, "action_plan", built.Type)
	assert.Equal(t, "pending", built.Status)
	assert.True(t, strings.HasPrefix(built.PlanID, "plan_"), "plan id %q should carry the prefix", built.PlanID)
	assert.NotNil(t, built.Assumptions)

	require.Len(t, built.Actions, 1)
	action := built.Actions[0]
	assert.Equal(t, built.PlanID+"-0", action.ID)
	assert.Equal(t, ActionCreateInvoice, action.ActionType)
	assert.Equal(t, ActionStatusPending, action.Status)
	assert.Equal(t, defaultActionConfidence, action.Confidence)
}

func TestBuildUniquePlanIDs(t *testing.T) {
	first, err := Build(validProposal())
	require.NoError(t, err)
	second, err := Build(validProposal())
	require.NoError(t, err)
	assert.NotEqual(t, first.PlanID, second.PlanID)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Proposal)
	}{
		{"nil proposal handled separately", nil},
		{"empty actions", func(p *Proposal) { p.Actions = nil }},
		{"blank summary", func(p *Proposal) { p.Summary = "  " }},
		{"unknown action type", func(p *Proposal) { p.Actions[0].ActionType = "delete_company" }},
		{"missing description", func(p *Proposal) { p.Actions[0].Description = "" }},
		{"missing required param", func(p *Proposal) { delete(p.Actions[0].Parameters, "customer_number") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.mutate == nil {
				_, err = Build(nil)
			} else {
				p := validProposal()
				tt.mutate(p)
				_, err = Build(p)
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected ValidationError, got %T", err)
		})
	}
}

func TestBuildRequiredParamsPerType(t *testing.T) {
	tests := []struct {
		actionType string
		params     map[string]any
		wantErr    bool
	}{
		{"book_supplier_invoice", map[string]any{"supplier_number": "42", "total_amount": 1250.0}, false},
		{"book_supplier_invoice", map[string]any{"supplier_number": "42"}, true},
		{"create_journal_entry", map[string]any{"description": "rattelse"}, false},
		{"create_journal_entry", map[string]any{}, true},
		{"export_sie", map[string]any{"fiscal_year": 2025.0}, false},
		{"export_sie", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.actionType, func(t *testing.T) {
			p := &Proposal{
				Summary: "test",
				Actions: []ActionSpec{{
					ActionType:  tt.actionType,
					Description: "test action",
					Parameters:  tt.params,
				}},
			}
			_, err := Build(p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildJournalEntryPostingRows(t *testing.T) {
	base := func(rows []LedgerRow) *Proposal {
		return &Proposal{
			Summary: "manuell verifikation",
			Actions: []ActionSpec{{
				ActionType:  "create_journal_entry",
				Description: "rattelse av momskonto",
				Parameters:  map[string]any{"description": "rattelse"},
				PostingRows: rows,
			}},
		}
	}

	t.Run("balanced rows accepted", func(t *testing.T) {
		_, err := Build(base([]LedgerRow{
			{Account: "6590", Debit: 1000},
			{Account: "2641", Debit: 250},
			{Account: "2440", Credit: 1250},
		}))
		assert.NoError(t, err)
	})

	t.Run("unbalanced rows rejected", func(t *testing.T) {
		_, err := Build(base([]LedgerRow{
			{Account: "6590", Debit: 1000},
			{Account: "2440", Credit: 900},
		}))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("two-sided row rejected", func(t *testing.T) {
		_, err := Build(base([]LedgerRow{
			{Account: "6590", Debit: 1000, Credit: 1000},
		}))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("missing account rejected", func(t *testing.T) {
		_, err := Build(base([]LedgerRow{
			{Debit: 1000},
			{Account: "2440", Credit: 1000},
		}))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("sub-ore drift tolerated", func(t *testing.T) {
		_, err := Build(base([]LedgerRow{
			{Account: "6590", Debit: 333.334},
			{Account: "2440", Credit: 333.33},
		}))
		assert.NoError(t, err)
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	built, err := Build(validProposal())
	require.NoError(t, err)

	payload, err := built.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalPlan(payload)
	require.NoError(t, err)
	assert.Equal(t, built.PlanID, restored.PlanID)
	require.Len(t, restored.Actions, 1)
	assert.Equal(t, built.Actions[0].ID, restored.Actions[0].ID)
}
