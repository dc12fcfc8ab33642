// Package intent provides a coarse rule-table classifier for action
// intent in user messages. It decides whether a chat turn should offer
// the model the plan-proposal tool; the model still decides the plan.
package intent

import (
	"regexp"
	"strings"
)

// ActionIntent classifies what bookkeeping operation a message asks for.
type ActionIntent int

const (
	// IntentNone: plain question, no side effects requested.
	IntentNone ActionIntent = iota

	// IntentCreateInvoice: "skapa en faktura till Acme", "fakturera kunden".
	IntentCreateInvoice

	// IntentBookSupplierInvoice: "bokför leverantörsfakturan", "registrera inköpet".
	IntentBookSupplierInvoice

	// IntentExportLedger: "exportera SIE-fil", "ta ut bokföringen för 2025".
	IntentExportLedger
)

// String returns the string representation of the intent.
func (i ActionIntent) String() string {
	switch i {
	case IntentCreateInvoice:
		return "create_invoice"
	case IntentBookSupplierInvoice:
		return "book_supplier_invoice"
	case IntentExportLedger:
		return "export_ledger"
	default:
		return "none"
	}
}

// Classifier matches trigger phrases in precedence order: export before
// supplier booking before invoicing, since "bokför och exportera" should
// surface the broader operation.
type Classifier struct {
	exportPatterns   []*regexp.Regexp
	supplierPatterns []*regexp.Regexp
	invoicePatterns  []*regexp.Regexp
}

// NewClassifier creates a classifier with the built-in rule table.
func NewClassifier() *Classifier {
	return &Classifier{
		exportPatterns: compilePatterns([]string{
			`exportera.*(sie|bokföring|huvudbok)`,
			`sie[- ]?(fil|export)`,
			`ta ut bokföringen`,
			`export.*(ledger|sie)`,
		}),
		supplierPatterns: compilePatterns([]string{
			`bokför.*(leverantörsfaktura|inköp|kvitto)`,
			`registrera.*(leverantörsfaktura|inköp)`,
			`book.*(supplier invoice|purchase)`,
			`leverantörsfaktura.*(bokför|registrera)`,
		}),
		invoicePatterns: compilePatterns([]string{
			`skapa.*faktura`,
			`fakturera\b`,
			`ny faktura`,
			`create.*invoice`,
			`invoice.*(customer|client)`,
		}),
	}
}

// Classify returns the first matching intent in precedence order.
func (c *Classifier) Classify(message string) ActionIntent {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return IntentNone
	}

	if matchAny(c.exportPatterns, normalized) {
		return IntentExportLedger
	}
	if matchAny(c.supplierPatterns, normalized) {
		return IntentBookSupplierInvoice
	}
	if matchAny(c.invoicePatterns, normalized) {
		return IntentCreateInvoice
	}
	return IntentNone
}

// IsActionIntent reports whether the message asks for any side effect.
func (c *Classifier) IsActionIntent(message string) bool {
	return c.Classify(message) != IntentNone
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
