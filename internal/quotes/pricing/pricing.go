// Package pricing computes quote and invoice totals. Pure functions, no
// persistence: totals are always derived from line items and recomputed on
// any line change, never stored as independently authoritative values.
package pricing

import "math"

// Line is one quote or invoice line as entered by the artisan.
// Discount and VatRate are percentages (20 means 20%).
type Line struct {
	Label     string
	Quantity  float64
	UnitPrice float64
	VatRate   float64
	Discount  float64
}

// LineTotals holds the per-line amounts, rounded to whole cents.
type LineTotals struct {
	TotalHT  float64
	TVA      float64
	TotalTTC float64
}

// Totals aggregates a document. TTC = HT + TVA holds by construction because
// aggregates are sums of already-rounded lines.
type Totals struct {
	TotalHT  float64
	TotalTVA float64
	TotalTTC float64
	Lines    []LineTotals
}

// roundCents rounds to whole cents, half away from zero.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// sanitize maps invalid numeric input to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	v = sanitize(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CalcLine computes one line independently of all others:
// total = qty * unit_price * (1 - discount/100), VAT = total * vat_rate/100,
// both rounded to cents.
func CalcLine(line Line) LineTotals {
	qty := sanitize(line.Quantity)
	unitPrice := sanitize(line.UnitPrice)
	discount := clampPercent(line.Discount)
	vatRate := sanitize(line.VatRate)

	totalHT := roundCents(qty * unitPrice * (1 - discount/100))
	tva := roundCents(totalHT * vatRate / 100)
	return LineTotals{
		TotalHT:  totalHT,
		TVA:      tva,
		TotalTTC: roundCents(totalHT + tva),
	}
}

// Calc computes document totals as sums of the rounded lines.
func Calc(lines []Line) Totals {
	totals := Totals{Lines: make([]LineTotals, 0, len(lines))}
	for _, line := range lines {
		lt := CalcLine(line)
		totals.Lines = append(totals.Lines, lt)
		totals.TotalHT = roundCents(totals.TotalHT + lt.TotalHT)
		totals.TotalTVA = roundCents(totals.TotalTVA + lt.TVA)
	}
	totals.TotalTTC = roundCents(totals.TotalHT + totals.TotalTVA)
	return totals
}
