package fortnox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokpilot/bokpilot/ai/plan"
)

func handlerRequest(actionType plan.ActionType, params map[string]any, rows []plan.LedgerRow) *plan.HandlerRequest {
	return &plan.HandlerRequest{
		Action: &plan.Action{
			ID:          "plan_test-0",
			ActionType:  actionType,
			Description: "testaction",
			Parameters:  params,
			PostingRows: rows,
		},
		IdempotencyKey: "bokpilot:acme:test",
		UserID:         7,
		CompanyID:      "acme",
	}
}

func TestInvoiceHandler(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Invoice": map[string]any{"DocumentNumber": "1042", "Total": 12500.0},
		})
	}))
	defer server.Close()

	handler := NewInvoiceHandler(testClient(server.URL))
	assert.Equal(t, plan.ActionCreateInvoice, handler.ActionType())

	result, err := handler.Execute(context.Background(), handlerRequest(plan.ActionCreateInvoice, map[string]any{
		"customer_number": "1001",
		"rows": []any{
			map[string]any{"description": "Konsulttimmar", "quantity": 10.0, "unit_price": 1000.0, "vat_rate": 0.25},
		},
	}, nil))
	require.NoError(t, err)

	assert.Equal(t, "1042", result.ResourceID)
	assert.Contains(t, result.Summary, "Invoice 1042")
	assert.NotEmpty(t, result.NewState)

	invoice := captured["Invoice"].(map[string]any)
	rows := invoice["InvoiceRows"].([]any)
	row := rows[0].(map[string]any)
	// VAT rate crosses the wire as a percentage.
	assert.Equal(t, 25.0, row["VAT"])
}

func TestInvoiceHandlerParameterErrors(t *testing.T) {
	handler := NewInvoiceHandler(testClient("http://unused.invalid"))

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing customer", map[string]any{"rows": []any{map[string]any{"description": "x", "unit_price": 1.0}}}},
		{"empty rows", map[string]any{"customer_number": "1001", "rows": []any{}}},
		{"row missing price", map[string]any{"customer_number": "1001", "rows": []any{map[string]any{"description": "x"}}}},
		{"bad vat rate", map[string]any{"customer_number": "1001", "rows": []any{
			map[string]any{"description": "x", "unit_price": 1.0, "vat_rate": 0.19},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), handlerRequest(plan.ActionCreateInvoice, tt.params, nil))
			require.Error(t, err)
			// Shape problems are per-action rejections, never aborts.
			assert.False(t, plan.IsInfrastructure(err))
		})
	}
}

func TestSupplierInvoiceHandlerDerivesPosting(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/supplierinvoices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"SupplierInvoice": map[string]any{"GivenNumber": "SI-77", "Total": 1250.0},
		})
	}))
	defer server.Close()

	handler := NewSupplierInvoiceHandler(testClient(server.URL))
	result, err := handler.Execute(context.Background(), handlerRequest(plan.ActionBookSupplierInvoice, map[string]any{
		"supplier_number": "42",
		"total_amount":    1250.0,
		"vat_rate":        0.25,
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, "SI-77", result.ResourceID)

	invoice := captured["SupplierInvoice"].(map[string]any)
	assert.Equal(t, 250.0, invoice["VAT"])
	rows := invoice["SupplierInvoiceRows"].([]any)
	// expense + incoming VAT + payable
	assert.Len(t, rows, 3)
}

func TestSupplierInvoiceHandlerPlanRowsCarryVAT(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"SupplierInvoice": map[string]any{"GivenNumber": "SI-78", "Total": 1250.0},
		})
	}))
	defer server.Close()

	handler := NewSupplierInvoiceHandler(testClient(server.URL))
	_, err := handler.Execute(context.Background(), handlerRequest(plan.ActionBookSupplierInvoice, map[string]any{
		"supplier_number": "42",
		"total_amount":    1250.0,
	}, []plan.LedgerRow{
		{Account: "6590", Debit: 1000},
		{Account: "2641", Debit: 250},
		{Account: "2440", Credit: 1250},
	}))
	require.NoError(t, err)

	// The VAT total is read off the input-VAT row, not left at zero.
	invoice := captured["SupplierInvoice"].(map[string]any)
	assert.Equal(t, 250.0, invoice["VAT"])
	rows := invoice["SupplierInvoiceRows"].([]any)
	assert.Len(t, rows, 3)
}

func TestJournalEntryHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vouchers", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Voucher": map[string]any{"VoucherNumber": 17, "VoucherSeries": "A"},
		})
	}))
	defer server.Close()

	handler := NewJournalEntryHandler(testClient(server.URL))
	result, err := handler.Execute(context.Background(), handlerRequest(plan.ActionCreateJournalEntry, map[string]any{
		"description": "rattelse moms",
	}, []plan.LedgerRow{
		{Account: "6590", Debit: 100},
		{Account: "2440", Credit: 100},
	}))
	require.NoError(t, err)
	assert.Equal(t, "A17", result.ResourceID)
}

func TestJournalEntryHandlerRequiresRows(t *testing.T) {
	handler := NewJournalEntryHandler(testClient("http://unused.invalid"))
	_, err := handler.Execute(context.Background(), handlerRequest(plan.ActionCreateJournalEntry, map[string]any{
		"description": "tom verifikation",
	}, nil))
	require.Error(t, err)
	assert.False(t, plan.IsInfrastructure(err))
}

func TestSIEExportHandler(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inbox", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"File": map[string]any{"Id": "f-1", "Name": "5560160680-2025.se"},
		})
	}))
	defer server.Close()

	handler := NewSIEExportHandler(testClient(server.URL), "Testbolaget AB", "556016-0680")
	handler.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }

	result, err := handler.Execute(context.Background(), handlerRequest(plan.ActionExportSIE, map[string]any{
		"fiscal_year": 2025.0,
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, "f-1", result.ResourceID)
	assert.Contains(t, result.Summary, "fiscal year 2025")

	// The uploaded document is a SIE4 file (base64 in the JSON body).
	file := captured["File"].(map[string]any)
	assert.Equal(t, "5560160680-2025.se", file["Name"])
	content := file["Content"].(string)
	assert.True(t, strings.HasPrefix(decodeBase64(t, content), "#FLAGGA 0"))
}

func TestSIEExportHandlerRejectsImplausibleYear(t *testing.T) {
	handler := NewSIEExportHandler(testClient("http://unused.invalid"), "Testbolaget AB", "556016-0680")
	_, err := handler.Execute(context.Background(), handlerRequest(plan.ActionExportSIE, map[string]any{
		"fiscal_year": 1850.0,
	}, nil))
	require.Error(t, err)
	assert.False(t, plan.IsInfrastructure(err))
}

func TestHandlersCoverEveryActionType(t *testing.T) {
	handlers := Handlers(testClient("http://unused.invalid"), "Testbolaget AB", "556016-0680")
	require.Len(t, handlers, 4)

	seen := map[plan.ActionType]bool{}
	for _, h := range handlers {
		seen[h.ActionType()] = true
	}
	for _, at := range []plan.ActionType{
		plan.ActionCreateInvoice,
		plan.ActionBookSupplierInvoice,
		plan.ActionCreateJournalEntry,
		plan.ActionExportSIE,
	} {
		assert.True(t, seen[at], "missing handler for %s", at)
	}
}

func decodeBase64(t *testing.T, s string) string {
	t.Helper()
	decoded, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return string(decoded)
}
