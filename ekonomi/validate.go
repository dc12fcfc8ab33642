// Package ekonomi implements Swedish accounting domain rules: VAT
// calculation, format validation and SIE4 ledger export.
package ekonomi

import (
	"fmt"
	"strings"
)

// CleanOrgNumber strips every non-digit from an organisationsnummer.
func CleanOrgNumber(orgNr string) string {
	var b strings.Builder
	for _, r := range orgNr {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateOrgNumber checks a Swedish organisationsnummer (NNNNNN-NNNN):
// ten digits starting with 1-9, with a Luhn check digit.
func ValidateOrgNumber(orgNr string) error {
	clean := CleanOrgNumber(orgNr)
	if len(clean) != 10 {
		return fmt.Errorf("organisationsnummer must be 10 digits, got %d", len(clean))
	}
	if clean[0] == '0' {
		return fmt.Errorf("organisationsnummer cannot start with 0")
	}

	checksum := 0
	for i := 0; i < 9; i++ {
		d := int(clean[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		checksum += d
	}
	expected := (10 - checksum%10) % 10
	if int(clean[9]-'0') != expected {
		return fmt.Errorf("invalid check digit (expected %d)", expected)
	}
	return nil
}

// ValidateVATNumber checks a Swedish VAT number: SE + valid org number + 01.
func ValidateVATNumber(vatNr string) error {
	upper := strings.ToUpper(strings.TrimSpace(vatNr))
	if !strings.HasPrefix(upper, "SE") {
		return fmt.Errorf("swedish VAT number must start with SE")
	}
	digits := CleanOrgNumber(upper)
	if len(digits) != 12 {
		return fmt.Errorf("VAT number must have 12 digits after SE, got %d", len(digits))
	}
	if err := ValidateOrgNumber(digits[:10]); err != nil {
		return fmt.Errorf("invalid organisationsnummer in VAT number: %w", err)
	}
	if digits[10:] != "01" {
		return fmt.Errorf("VAT number must end with 01")
	}
	return nil
}

// ValidateBASAccount checks that an account number is inside the
// BAS chart of accounts range (1000-8999).
func ValidateBASAccount(account string) error {
	if len(account) != 4 {
		return fmt.Errorf("BAS account must be 4 digits, got %q", account)
	}
	for _, r := range account {
		if r < '0' || r > '9' {
			return fmt.Errorf("BAS account must be numeric, got %q", account)
		}
	}
	if account[0] < '1' || account[0] > '8' {
		return fmt.Errorf("BAS account %s outside range 1000-8999", account)
	}
	return nil
}
