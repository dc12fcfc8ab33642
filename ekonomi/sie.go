package ekonomi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SIE4 export for Swedish bookkeeping software (Fortnox, Visma, etc).
// Reference: SIE-gruppen file format specification, type 4.

const (
	sieVersion   = "4"
	sieChartType = "BAS2025"
	sieProgram   = "bokpilot"
)

// Verification is one verifikation: a dated, described set of balanced
// ledger transactions.
type Verification struct {
	Number       int
	Date         time.Time
	Description  string
	Transactions []PostingRow
}

// SIEExporter accumulates accounts, opening balances and verifications,
// then renders them as a SIE4 document.
type SIEExporter struct {
	companyName     string
	orgNumber       string
	fiscalYearStart string // MMDD
	fiscalYearEnd   string // MMDD
	accounts        map[string]string
	openingBalances map[string]float64
	verifications   []Verification
	now             func() time.Time
}

// NewSIEExporter creates an exporter for a company with a calendar fiscal year.
func NewSIEExporter(companyName, orgNumber string) *SIEExporter {
	return &SIEExporter{
		companyName:     companyName,
		orgNumber:       CleanOrgNumber(orgNumber),
		fiscalYearStart: "0101",
		fiscalYearEnd:   "1231",
		accounts:        make(map[string]string),
		openingBalances: make(map[string]float64),
		now:             time.Now,
	}
}

// WithFiscalYear overrides the fiscal year bounds (MMDD).
func (e *SIEExporter) WithFiscalYear(start, end string) *SIEExporter {
	e.fiscalYearStart = start
	e.fiscalYearEnd = end
	return e
}

// WithClock fixes the generation timestamp, for tests.
func (e *SIEExporter) WithClock(now func() time.Time) *SIEExporter {
	e.now = now
	return e
}

// AddAccount registers an account in the chart of accounts.
func (e *SIEExporter) AddAccount(number, name string) {
	e.accounts[number] = name
}

// AddStandardAccounts registers the assistant's default BAS accounts.
func (e *SIEExporter) AddStandardAccounts() {
	for number, name := range StandardAccountNames {
		e.accounts[number] = name
	}
}

// SetOpeningBalance sets the ingående balans for an account.
func (e *SIEExporter) SetOpeningBalance(account string, balance float64) {
	e.openingBalances[account] = balance
}

// AddVerification appends a verification. Rows must balance.
func (e *SIEExporter) AddVerification(v Verification) error {
	if err := Balanced(v.Transactions); err != nil {
		return fmt.Errorf("verification %d: %w", v.Number, err)
	}
	e.verifications = append(e.verifications, v)
	return nil
}

// Export renders the SIE4 document for a fiscal year.
func (e *SIEExporter) Export(year int) string {
	var lines []string

	lines = append(lines,
		"#FLAGGA 0",
		"#FORMAT PC8",
		"#SIETYP "+sieVersion,
		fmt.Sprintf("#PROGRAM %q 1.0", sieProgram),
		"#GEN "+e.now().Format("20060102"),
		fmt.Sprintf("#FNAMN %q", e.companyName),
		"#ORGNR "+e.orgNumber,
		fmt.Sprintf("#RAR 0 %d%s %d%s", year, e.fiscalYearStart, year, e.fiscalYearEnd),
		"#KPTYP "+sieChartType,
		"",
	)

	accountNumbers := make([]string, 0, len(e.accounts))
	for number := range e.accounts {
		accountNumbers = append(accountNumbers, number)
	}
	sort.Strings(accountNumbers)
	for _, number := range accountNumbers {
		lines = append(lines, fmt.Sprintf("#KONTO %s %q", number, e.accounts[number]))
	}
	lines = append(lines, "")

	if len(e.openingBalances) > 0 {
		balanceAccounts := make([]string, 0, len(e.openingBalances))
		for account := range e.openingBalances {
			balanceAccounts = append(balanceAccounts, account)
		}
		sort.Strings(balanceAccounts)
		for _, account := range balanceAccounts {
			lines = append(lines, fmt.Sprintf("#IB 0 %s %s", account, formatAmount(e.openingBalances[account])))
		}
		lines = append(lines, "")
	}

	for _, ver := range e.verifications {
		desc := strings.ReplaceAll(ver.Description, `"`, "'")
		lines = append(lines, fmt.Sprintf("#VER \"\" %d %s %q", ver.Number, ver.Date.Format("20060102"), desc))
		lines = append(lines, "{")
		for _, trans := range ver.Transactions {
			amount := trans.Debit - trans.Credit
			if amount == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("    #TRANS %s {} %s", trans.Account, formatAmount(amount)))
		}
		lines = append(lines, "}")
	}

	return strings.Join(lines, "\n") + "\n"
}

// formatAmount renders an amount with a dot decimal separator and no
// trailing zeros beyond öre precision.
func formatAmount(amount float64) string {
	s := strconv.FormatFloat(round2(amount), 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
