package ekonomi

import "testing"

func TestCleanOrgNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"556016-0680", "5560160680"},
		{"55 60 16 06 80", "5560160680"},
		{"SE556016068001", "556016068001"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanOrgNumber(tt.input); got != tt.expected {
			t.Errorf("CleanOrgNumber(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValidateOrgNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid with dash", "556016-0680", false},
		{"valid without dash", "5560160680", false},
		{"valid other company", "556036-0793", false},
		{"bad check digit", "556016-0681", true},
		{"leading zero with valid check digit", "056016-0681", true},
		{"too short", "55601606", true},
		{"too long", "55601606801", true},
		{"letters only", "abcdefghij", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrgNumber(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOrgNumber(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVATNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "SE556016068001", false},
		{"valid lowercase", "se556016068001", false},
		{"missing SE prefix", "556016068001", true},
		{"wrong suffix", "SE556016068002", true},
		{"bad org number", "SE556016068101", true},
		{"too short", "SE5560160680", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVATNumber(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVATNumber(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBASAccount(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1510", false},
		{"2440", false},
		{"8999", false},
		{"1000", false},
		{"0999", true},
		{"9000", true},
		{"123", true},
		{"12345", true},
		{"25a0", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateBASAccount(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateBASAccount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
