package ekonomi

import (
	"fmt"
	"sort"
)

// TransactionKind says which side of the VAT report a transaction lands on.
type TransactionKind string

const (
	KindSale     TransactionKind = "sale"
	KindPurchase TransactionKind = "purchase"
)

// Transaction is one gross-amount business event feeding the VAT report.
type Transaction struct {
	Kind  TransactionKind
	Gross float64
	Rate  float64
}

// RateSummary aggregates net and VAT for one rate on one side of the report.
type RateSummary struct {
	Rate  float64
	Net   float64
	VAT   float64
	Count int
}

// VATReport is the per-period momsrapport: sales and purchases broken down
// per rate, plus the settlement amount (outgoing minus incoming VAT).
// Positive VATToPay means the company owes Skatteverket.
type VATReport struct {
	Sales       []RateSummary
	Purchases   []RateSummary
	OutgoingVAT float64
	IncomingVAT float64
	VATToPay    float64
}

// BuildVATReport aggregates transactions into a per-rate VAT report.
// Rates are validated; an unknown rate or kind fails the whole report
// rather than silently skewing the totals.
func BuildVATReport(transactions []Transaction) (*VATReport, error) {
	sales := map[float64]*RateSummary{}
	purchases := map[float64]*RateSummary{}

	for i, tx := range transactions {
		net, vat, err := SplitGross(tx.Gross, tx.Rate)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		var side map[float64]*RateSummary
		switch tx.Kind {
		case KindSale:
			side = sales
		case KindPurchase:
			side = purchases
		default:
			return nil, fmt.Errorf("transaction %d: unknown kind %q", i, tx.Kind)
		}

		summary, ok := side[tx.Rate]
		if !ok {
			summary = &RateSummary{Rate: tx.Rate}
			side[tx.Rate] = summary
		}
		summary.Net = round2(summary.Net + net)
		summary.VAT = round2(summary.VAT + vat)
		summary.Count++
	}

	report := &VATReport{
		Sales:     flattenSummaries(sales),
		Purchases: flattenSummaries(purchases),
	}
	for _, s := range report.Sales {
		report.OutgoingVAT = round2(report.OutgoingVAT + s.VAT)
	}
	for _, s := range report.Purchases {
		report.IncomingVAT = round2(report.IncomingVAT + s.VAT)
	}
	report.VATToPay = round2(report.OutgoingVAT - report.IncomingVAT)
	return report, nil
}

// flattenSummaries orders per-rate summaries highest rate first, the order
// the report boxes are usually read in.
func flattenSummaries(side map[float64]*RateSummary) []RateSummary {
	out := make([]RateSummary, 0, len(side))
	for _, s := range side {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	return out
}
