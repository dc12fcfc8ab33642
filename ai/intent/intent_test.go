package intent

import (
	"testing"
)

func TestClassify(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name     string
		message  string
		expected ActionIntent
	}{
		// Plain questions
		{"empty", "", IntentNone},
		{"whitespace", "   ", IntentNone},
		{"question about vat", "vilken momssats galler for konsulttjanster?", IntentNone},
		{"past tense is not a request", "hur mycket har vi fakturerat i år?", IntentNone},

		// Invoice intent
		{"skapa faktura", "skapa en faktura till Acme AB", IntentCreateInvoice},
		{"fakturera", "fakturera kunden 10 timmar konsultarbete", IntentCreateInvoice},
		{"ny faktura", "ny faktura till Nordström Bygg", IntentCreateInvoice},
		{"english create", "create an invoice for 5000 SEK", IntentCreateInvoice},

		// Supplier invoice intent
		{"bokfor leverantorsfaktura", "bokför leverantörsfakturan från Telia", IntentBookSupplierInvoice},
		{"registrera inkop", "registrera inköpet av kontorsmaterial", IntentBookSupplierInvoice},
		{"english supplier", "book the supplier invoice from the landlord", IntentBookSupplierInvoice},

		// Export intent
		{"exportera sie", "exportera en SIE-fil för 2025", IntentExportLedger},
		{"sie export", "gör en sie-export åt revisorn", IntentExportLedger},
		{"ta ut bokforingen", "kan du ta ut bokföringen för förra året?", IntentExportLedger},

		// Precedence: export wins over booking when both appear
		{"mixed precedence", "bokför inköpet och exportera sedan en SIE-fil", IntentExportLedger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.message)
			if got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.expected)
			}
		})
	}
}

func TestIsActionIntent(t *testing.T) {
	classifier := NewClassifier()

	if classifier.IsActionIntent("vad är momsen på böcker?") {
		t.Error("plain question should not be an action intent")
	}
	if !classifier.IsActionIntent("skapa en faktura till Acme") {
		t.Error("invoice request should be an action intent")
	}
}
