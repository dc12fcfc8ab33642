package ekonomi

import (
	"fmt"
	"math"
)

// Swedish VAT rates.
const (
	VATStandard  = 0.25
	VATReduced12 = 0.12
	VATReduced6  = 0.06
	VATZero      = 0.0
)

// BAS-2025 accounts used by the assistant's posting proposals.
const (
	AccountReceivable     = "1510" // Kundfordringar
	AccountPayable        = "2440" // Leverantörsskulder
	AccountOutgoingVAT25  = "2611" // Utgående moms 25%
	AccountOutgoingVAT12  = "2621" // Utgående moms 12%
	AccountOutgoingVAT6   = "2631" // Utgående moms 6%
	AccountIncomingVAT    = "2641" // Ingående moms
	AccountVATSettlement  = "2650" // Momsredovisning
	AccountSalesService25 = "3010" // Försäljning tjänster 25%
	AccountSalesService0  = "3011" // Försäljning tjänster momsfri
	AccountExternalSvc    = "6590" // Övriga externa tjänster
)

// StandardAccountNames maps the accounts above to their BAS names, used
// when exporting a chart of accounts.
var StandardAccountNames = map[string]string{
	AccountReceivable:     "Kundfordringar",
	AccountPayable:        "Leverantörsskulder",
	AccountOutgoingVAT25:  "Utgående moms 25%",
	AccountOutgoingVAT12:  "Utgående moms 12%",
	AccountOutgoingVAT6:   "Utgående moms 6%",
	AccountIncomingVAT:    "Ingående moms",
	AccountVATSettlement:  "Momsredovisning",
	AccountSalesService25: "Försäljning tjänster 25%",
	AccountSalesService0:  "Försäljning tjänster momsfri",
	AccountExternalSvc:    "Övriga externa tjänster",
}

// OutgoingVATAccount returns the output VAT account for a rate, or empty
// for the zero rate.
func OutgoingVATAccount(rate float64) string {
	switch rate {
	case VATStandard:
		return AccountOutgoingVAT25
	case VATReduced12:
		return AccountOutgoingVAT12
	case VATReduced6:
		return AccountOutgoingVAT6
	default:
		return ""
	}
}

// ValidRate reports whether rate is a legal Swedish VAT rate.
func ValidRate(rate float64) bool {
	switch rate {
	case VATStandard, VATReduced12, VATReduced6, VATZero:
		return true
	}
	return false
}

// round2 rounds to two decimals, half away from zero (öre precision).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitGross splits a gross amount into net and VAT for a rate.
func SplitGross(gross, rate float64) (net, vat float64, err error) {
	if !ValidRate(rate) {
		return 0, 0, fmt.Errorf("invalid VAT rate %v", rate)
	}
	net = round2(gross / (1 + rate))
	vat = round2(gross - net)
	return net, vat, nil
}

// ValidateVATCalculation checks that vat is rate percent of net within an
// öre-level tolerance.
func ValidateVATCalculation(net, vat, rate float64) error {
	if !ValidRate(rate) {
		return fmt.Errorf("invalid VAT rate %v", rate)
	}
	expected := round2(net * rate)
	if math.Abs(vat-expected) > 0.02 {
		return fmt.Errorf("VAT %.2f does not match %.0f%% of %.2f (expected %.2f)", vat, rate*100, net, expected)
	}
	return nil
}

// ValidateGrossAmount checks gross = net + vat within tolerance.
func ValidateGrossAmount(net, vat, gross float64) error {
	expected := net + vat
	if math.Abs(gross-expected) > 0.02 {
		return fmt.Errorf("gross %.2f != net %.2f + VAT %.2f", gross, net, vat)
	}
	return nil
}

// SalePosting builds the balanced posting rows for a service sale at the
// given VAT rate: receivable debit, sales and VAT credits.
func SalePosting(gross, rate float64, comment string) ([]PostingRow, error) {
	net, vat, err := SplitGross(gross, rate)
	if err != nil {
		return nil, err
	}

	salesAccount := AccountSalesService25
	if rate == VATZero {
		salesAccount = AccountSalesService0
	}

	rows := []PostingRow{
		{Account: AccountReceivable, AccountName: StandardAccountNames[AccountReceivable], Debit: gross, Comment: comment},
		{Account: salesAccount, AccountName: StandardAccountNames[salesAccount], Credit: net, Comment: comment},
	}
	if vat > 0 {
		vatAccount := OutgoingVATAccount(rate)
		rows = append(rows, PostingRow{
			Account:     vatAccount,
			AccountName: StandardAccountNames[vatAccount],
			Credit:      vat,
			Comment:     comment,
		})
	}
	return rows, nil
}

// PurchasePosting builds the balanced posting rows for a supplier cost at
// the given VAT rate: expense and input-VAT debits, payable credit.
func PurchasePosting(gross, rate float64, expenseAccount, comment string) ([]PostingRow, error) {
	if expenseAccount == "" {
		expenseAccount = AccountExternalSvc
	}
	if err := ValidateBASAccount(expenseAccount); err != nil {
		return nil, err
	}
	net, vat, err := SplitGross(gross, rate)
	if err != nil {
		return nil, err
	}

	name := StandardAccountNames[expenseAccount]
	rows := []PostingRow{
		{Account: expenseAccount, AccountName: name, Debit: net, Comment: comment},
	}
	if vat > 0 {
		rows = append(rows, PostingRow{
			Account:     AccountIncomingVAT,
			AccountName: StandardAccountNames[AccountIncomingVAT],
			Debit:       vat,
			Comment:     comment,
		})
	}
	rows = append(rows, PostingRow{
		Account:     AccountPayable,
		AccountName: StandardAccountNames[AccountPayable],
		Credit:      gross,
		Comment:     comment,
	})
	return rows, nil
}

// PostingRow is one debit/credit line. Mirrors the plan.LedgerRow shape
// without importing the plan package: ekonomi stays a leaf.
type PostingRow struct {
	Account     string
	AccountName string
	Debit       float64
	Credit      float64
	Comment     string
}

// Balanced checks that debits equal credits within öre tolerance.
func Balanced(rows []PostingRow) error {
	var debit, credit float64
	for _, r := range rows {
		debit += r.Debit
		credit += r.Credit
	}
	if math.Abs(debit-credit) > 0.005 {
		return fmt.Errorf("posting does not balance: debit %.2f, credit %.2f", debit, credit)
	}
	return nil
}
