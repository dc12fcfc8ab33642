package fortnox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bokpilot/bokpilot/ai/plan"
	"github.com/bokpilot/bokpilot/ekonomi"
)

// Parameter extraction helpers. Parameters arrive as generic JSON, so
// numbers are float64 and everything needs shape checks. A bad shape is a
// per-action rejection, not an infrastructure fault.

func badParam(field, message string) error {
	return &plan.ActionWriteError{
		Operation:  "parameter validation",
		StatusCode: http.StatusUnprocessableEntity,
		Message:    fmt.Sprintf("%s: %s", field, message),
	}
}

func stringParam(params map[string]any, field string) (string, error) {
	raw, ok := params[field]
	if !ok {
		return "", badParam(field, "missing")
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		// account and customer numbers often arrive as JSON numbers
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", badParam(field, "expected a string")
}

func floatParam(params map[string]any, field string) (float64, error) {
	raw, ok := params[field]
	if !ok {
		return 0, badParam(field, "missing")
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, badParam(field, "expected a number")
		}
		return f, nil
	}
	return 0, badParam(field, "expected a number")
}

func optionalFloat(params map[string]any, field string, fallback float64) float64 {
	f, err := floatParam(params, field)
	if err != nil {
		return fallback
	}
	return f
}

func optionalString(params map[string]any, field string) string {
	s, _ := stringParam(params, field)
	return s
}

// InvoiceHandler creates customer invoices on the platform.
type InvoiceHandler struct {
	client *Client
}

// NewInvoiceHandler creates the create_invoice handler.
func NewInvoiceHandler(client *Client) *InvoiceHandler {
	return &InvoiceHandler{client: client}
}

func (h *InvoiceHandler) ActionType() plan.ActionType { return plan.ActionCreateInvoice }

func (h *InvoiceHandler) Execute(ctx context.Context, req *plan.HandlerRequest) (*plan.HandlerResult, error) {
	params := req.Action.Parameters

	customer, err := stringParam(params, "customer_number")
	if err != nil {
		return nil, err
	}
	rawRows, ok := params["rows"].([]any)
	if !ok || len(rawRows) == 0 {
		return nil, badParam("rows", "expected a non-empty list")
	}

	invoice := &Invoice{
		CustomerNumber: customer,
		Comments:       optionalString(params, "comments"),
	}
	for i, rawRow := range rawRows {
		row, ok := rawRow.(map[string]any)
		if !ok {
			return nil, badParam(fmt.Sprintf("rows[%d]", i), "expected an object")
		}
		description, err := stringParam(row, "description")
		if err != nil {
			return nil, err
		}
		price, err := floatParam(row, "unit_price")
		if err != nil {
			return nil, err
		}
		vatRate := optionalFloat(row, "vat_rate", ekonomi.VATStandard)
		if !ekonomi.ValidRate(vatRate) {
			return nil, badParam(fmt.Sprintf("rows[%d].vat_rate", i), fmt.Sprintf("unsupported VAT rate %v", vatRate))
		}
		invoice.InvoiceRows = append(invoice.InvoiceRows, InvoiceRow{
			Description: description,
			Quantity:    optionalFloat(row, "quantity", 1),
			Price:       price,
			VATRate:     vatRate * 100,
		})
	}

	resp, err := h.client.CreateInvoice(ctx, invoice, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	snapshot, _ := json.Marshal(resp.Invoice)
	return &plan.HandlerResult{
		Summary:    fmt.Sprintf("Invoice %s created for customer %s, total %.2f SEK", resp.Invoice.DocumentNumber, customer, resp.Invoice.Total),
		ResourceID: resp.Invoice.DocumentNumber,
		NewState:   snapshot,
	}, nil
}

// SupplierInvoiceHandler books supplier invoices.
type SupplierInvoiceHandler struct {
	client *Client
}

// NewSupplierInvoiceHandler creates the book_supplier_invoice handler.
func NewSupplierInvoiceHandler(client *Client) *SupplierInvoiceHandler {
	return &SupplierInvoiceHandler{client: client}
}

func (h *SupplierInvoiceHandler) ActionType() plan.ActionType { return plan.ActionBookSupplierInvoice }

func (h *SupplierInvoiceHandler) Execute(ctx context.Context, req *plan.HandlerRequest) (*plan.HandlerResult, error) {
	params := req.Action.Parameters

	supplier, err := stringParam(params, "supplier_number")
	if err != nil {
		return nil, err
	}
	gross, err := floatParam(params, "total_amount")
	if err != nil {
		return nil, err
	}
	vatRate := optionalFloat(params, "vat_rate", ekonomi.VATStandard)
	expenseAccount := optionalString(params, "expense_account")

	// Derive balanced posting rows from the gross amount unless the plan
	// already carries them.
	rows := toVoucherRows(req.Action.PostingRows)
	var vat float64
	if len(rows) == 0 {
		posting, err := ekonomi.PurchasePosting(gross, vatRate, expenseAccount, req.Action.Description)
		if err != nil {
			return nil, badParam("total_amount", err.Error())
		}
		rows = toEkonomiVoucherRows(posting)
		_, vat, _ = ekonomi.SplitGross(gross, vatRate)
	} else {
		// Plan-supplied rows carry the VAT on the input-VAT account.
		for _, row := range req.Action.PostingRows {
			if row.Account == ekonomi.AccountIncomingVAT {
				vat += row.Debit
			}
		}
	}

	resp, err := h.client.CreateSupplierInvoice(ctx, &SupplierInvoice{
		SupplierNumber: supplier,
		Total:          gross,
		VAT:            vat,
		InvoiceNumber:  optionalString(params, "invoice_number"),
		VoucherRows:    rows,
	}, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	snapshot, _ := json.Marshal(resp.SupplierInvoice)
	return &plan.HandlerResult{
		Summary:    fmt.Sprintf("Supplier invoice %s booked for supplier %s, total %.2f SEK", resp.SupplierInvoice.GivenNumber, supplier, gross),
		ResourceID: resp.SupplierInvoice.GivenNumber,
		NewState:   snapshot,
	}, nil
}

// JournalEntryHandler books manual vouchers.
type JournalEntryHandler struct {
	client *Client
	now    func() time.Time
}

// NewJournalEntryHandler creates the create_journal_entry handler.
func NewJournalEntryHandler(client *Client) *JournalEntryHandler {
	return &JournalEntryHandler{client: client, now: time.Now}
}

func (h *JournalEntryHandler) ActionType() plan.ActionType { return plan.ActionCreateJournalEntry }

func (h *JournalEntryHandler) Execute(ctx context.Context, req *plan.HandlerRequest) (*plan.HandlerResult, error) {
	params := req.Action.Parameters

	description, err := stringParam(params, "description")
	if err != nil {
		return nil, err
	}
	if len(req.Action.PostingRows) == 0 {
		return nil, badParam("posting_rows", "a journal entry needs at least one row")
	}
	for _, row := range req.Action.PostingRows {
		if err := ekonomi.ValidateBASAccount(row.Account); err != nil {
			return nil, badParam("posting_rows", err.Error())
		}
	}

	date := optionalString(params, "date")
	if date == "" {
		date = h.now().Format("2006-01-02")
	}

	resp, err := h.client.CreateVoucher(ctx, &Voucher{
		Description:     description,
		TransactionDate: date,
		VoucherRows:     toVoucherRows(req.Action.PostingRows),
	}, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	voucherID := fmt.Sprintf("%s%d", resp.Voucher.VoucherSeries, resp.Voucher.VoucherNumber)
	snapshot, _ := json.Marshal(resp.Voucher)
	return &plan.HandlerResult{
		Summary:    fmt.Sprintf("Voucher %s booked: %s", voucherID, description),
		ResourceID: voucherID,
		NewState:   snapshot,
	}, nil
}

// SIEExportHandler renders a SIE4 document and stores it in the platform
// archive inbox.
type SIEExportHandler struct {
	client      *Client
	companyName string
	orgNumber   string
	now         func() time.Time
}

// NewSIEExportHandler creates the export_sie handler.
func NewSIEExportHandler(client *Client, companyName, orgNumber string) *SIEExportHandler {
	return &SIEExportHandler{client: client, companyName: companyName, orgNumber: orgNumber, now: time.Now}
}

func (h *SIEExportHandler) ActionType() plan.ActionType { return plan.ActionExportSIE }

func (h *SIEExportHandler) Execute(ctx context.Context, req *plan.HandlerRequest) (*plan.HandlerResult, error) {
	params := req.Action.Parameters

	yearValue, err := floatParam(params, "fiscal_year")
	if err != nil {
		return nil, err
	}
	year := int(yearValue)
	if year < 1990 || year > h.now().Year()+1 {
		return nil, badParam("fiscal_year", fmt.Sprintf("implausible year %d", year))
	}

	exporter := ekonomi.NewSIEExporter(h.companyName, h.orgNumber).WithClock(h.now)
	exporter.AddStandardAccounts()

	// Verifications may be carried inline on the action; an empty export
	// is still a valid SIE document (accounts and balances only).
	if rawVers, ok := params["verifications"].([]any); ok {
		for i, rawVer := range rawVers {
			ver, err := parseVerification(i, rawVer)
			if err != nil {
				return nil, err
			}
			if err := exporter.AddVerification(ver); err != nil {
				return nil, badParam(fmt.Sprintf("verifications[%d]", i), err.Error())
			}
		}
	}

	document := exporter.Export(year)
	filename := fmt.Sprintf("%s-%d.se", ekonomi.CleanOrgNumber(h.orgNumber), year)

	resp, err := h.client.UploadInboxFile(ctx, filename, []byte(document), req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	snapshot, _ := json.Marshal(map[string]any{"file_id": resp.File.ID, "name": resp.File.Name, "fiscal_year": year})
	return &plan.HandlerResult{
		Summary:    fmt.Sprintf("SIE export %s for fiscal year %d stored in archive", resp.File.Name, year),
		ResourceID: resp.File.ID,
		NewState:   snapshot,
	}, nil
}

func parseVerification(ordinal int, raw any) (ekonomi.Verification, error) {
	field := fmt.Sprintf("verifications[%d]", ordinal)
	obj, ok := raw.(map[string]any)
	if !ok {
		return ekonomi.Verification{}, badParam(field, "expected an object")
	}

	description, err := stringParam(obj, "description")
	if err != nil {
		return ekonomi.Verification{}, err
	}
	dateStr, err := stringParam(obj, "date")
	if err != nil {
		return ekonomi.Verification{}, err
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return ekonomi.Verification{}, badParam(field+".date", "expected YYYY-MM-DD")
	}

	rawRows, ok := obj["transactions"].([]any)
	if !ok || len(rawRows) == 0 {
		return ekonomi.Verification{}, badParam(field+".transactions", "expected a non-empty list")
	}
	var rows []ekonomi.PostingRow
	for j, rawRow := range rawRows {
		rowObj, ok := rawRow.(map[string]any)
		if !ok {
			return ekonomi.Verification{}, badParam(fmt.Sprintf("%s.transactions[%d]", field, j), "expected an object")
		}
		account, err := stringParam(rowObj, "account")
		if err != nil {
			return ekonomi.Verification{}, err
		}
		rows = append(rows, ekonomi.PostingRow{
			Account: account,
			Debit:   optionalFloat(rowObj, "debit", 0),
			Credit:  optionalFloat(rowObj, "credit", 0),
			Comment: optionalString(rowObj, "comment"),
		})
	}

	return ekonomi.Verification{
		Number:       ordinal + 1,
		Date:         date,
		Description:  description,
		Transactions: rows,
	}, nil
}

// toVoucherRows converts plan ledger rows into platform voucher rows.
func toVoucherRows(rows []plan.LedgerRow) []VoucherRow {
	out := make([]VoucherRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, VoucherRow{
			Account:     row.Account,
			Debit:       row.Debit,
			Credit:      row.Credit,
			Description: row.Comment,
		})
	}
	return out
}

func toEkonomiVoucherRows(rows []ekonomi.PostingRow) []VoucherRow {
	out := make([]VoucherRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, VoucherRow{
			Account:     row.Account,
			Debit:       row.Debit,
			Credit:      row.Credit,
			Description: row.Comment,
		})
	}
	return out
}

// Handlers builds the full handler set for a company scope.
func Handlers(client *Client, companyName, orgNumber string) []plan.Handler {
	return []plan.Handler{
		NewInvoiceHandler(client),
		NewSupplierInvoiceHandler(client),
		NewJournalEntryHandler(client),
		NewSIEExportHandler(client, companyName, orgNumber),
	}
}
