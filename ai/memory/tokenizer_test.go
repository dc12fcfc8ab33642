package memory

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \t\n", nil},
		{"lowercases", "Faktura ACME", []string{"faktura", "acme"}},
		{"folds swedish accents", "bokför på måndag", []string{"bokfor", "mandag"}},
		{"drops short tokens", "vi ab går", []string{"gar"}},
		{"drops stopwords", "och för att skapa faktura", []string{"skapa", "faktura"}},
		{"strips punctuation", "moms: 25%, konto 2611!", []string{"moms", "konto", "2611"}},
		{"keeps duplicates in order", "faktura faktura kund", []string{"faktura", "faktura", "kund"}},
		{"mixed language", "create invoice for Acme AB", []string{"create", "invoice", "acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenizeAccentEquivalence(t *testing.T) {
	a := Tokenize("fakturerad på måndag")
	b := Tokenize("fakturerad pa mandag")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("accented and unaccented forms tokenize differently: %v vs %v", a, b)
	}
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("faktura faktura moms")
	if len(set) != 2 {
		t.Fatalf("expected 2 unique tokens, got %d: %v", len(set), set)
	}
	for _, tok := range []string{"faktura", "moms"} {
		if _, ok := set[tok]; !ok {
			t.Errorf("expected token %q in set", tok)
		}
	}

	if set := TokenSet(""); set != nil {
		t.Errorf("expected nil set for empty text, got %v", set)
	}
}
