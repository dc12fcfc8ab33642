package ekonomi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedExporter() *SIEExporter {
	gen := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return NewSIEExporter("Testbolaget AB", "556016-0680").
		WithClock(func() time.Time { return gen })
}

func TestSIEExportHeader(t *testing.T) {
	out := fixedExporter().Export(2025)
	lines := strings.Split(out, "\n")

	assert.Equal(t, "#FLAGGA 0", lines[0])
	assert.Equal(t, "#FORMAT PC8", lines[1])
	assert.Equal(t, "#SIETYP 4", lines[2])
	assert.Equal(t, `#PROGRAM "bokpilot" 1.0`, lines[3])
	assert.Equal(t, "#GEN 20260115", lines[4])
	assert.Equal(t, `#FNAMN "Testbolaget AB"`, lines[5])
	assert.Equal(t, "#ORGNR 5560160680", lines[6])
	assert.Contains(t, out, "#RAR 0 20250101 20251231")
	assert.Contains(t, out, "#KPTYP BAS2025")
}

func TestSIEExportAccountsSorted(t *testing.T) {
	exporter := fixedExporter()
	exporter.AddAccount("3010", "Försäljning tjänster 25%")
	exporter.AddAccount("1510", "Kundfordringar")
	exporter.AddAccount("2611", "Utgående moms 25%")

	out := exporter.Export(2025)

	first := strings.Index(out, "#KONTO 1510")
	second := strings.Index(out, "#KONTO 2611")
	third := strings.Index(out, "#KONTO 3010")
	require.True(t, first >= 0 && second >= 0 && third >= 0, "missing #KONTO lines:\n%s", out)
	assert.Less(t, first, second)
	assert.Less(t, second, third)

	assert.Contains(t, out, `#KONTO 1510 "Kundfordringar"`)
}

func TestSIEExportOpeningBalances(t *testing.T) {
	exporter := fixedExporter()
	exporter.SetOpeningBalance("1930", 15000.50)
	exporter.SetOpeningBalance("2440", -4200)

	out := exporter.Export(2025)
	assert.Contains(t, out, "#IB 0 1930 15000.5")
	assert.Contains(t, out, "#IB 0 2440 -4200")
}

func TestSIEExportVerification(t *testing.T) {
	exporter := fixedExporter()
	exporter.AddStandardAccounts()

	err := exporter.AddVerification(Verification{
		Number:      1,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: `Faktura "Acme"`,
		Transactions: []PostingRow{
			{Account: "1510", Debit: 1250},
			{Account: "3010", Credit: 1000},
			{Account: "2611", Credit: 250},
		},
	})
	require.NoError(t, err)

	out := exporter.Export(2025)

	// Quotes in descriptions are neutralized, credits render negative.
	assert.Contains(t, out, `#VER "" 1 20250310 "Faktura 'Acme'"`)
	assert.Contains(t, out, "    #TRANS 1510 {} 1250")
	assert.Contains(t, out, "    #TRANS 3010 {} -1000")
	assert.Contains(t, out, "    #TRANS 2611 {} -250")

	// Verification block opens and closes.
	verIdx := strings.Index(out, "#VER")
	assert.Less(t, verIdx, strings.Index(out, "\n{"))
	assert.Contains(t, out, "\n}")
}

func TestSIEExportRejectsUnbalancedVerification(t *testing.T) {
	exporter := fixedExporter()
	err := exporter.AddVerification(Verification{
		Number:      1,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "obalanserad",
		Transactions: []PostingRow{
			{Account: "1510", Debit: 1000},
			{Account: "3010", Credit: 900},
		},
	})
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{1250, "1250"},
		{1250.5, "1250.5"},
		{1250.25, "1250.25"},
		{-250, "-250"},
		{0, "0"},
		{0.004, "0"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.input); got != tt.expected {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
