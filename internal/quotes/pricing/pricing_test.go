package pricing

import (
	"math"
	"testing"
)

func TestCalcLine(t *testing.T) {
	cases := []struct {
		name string
		line Line
		want LineTotals
	}{
		{
			name: "plain line",
			line: Line{Quantity: 2, UnitPrice: 100, VatRate: 20},
			want: LineTotals{TotalHT: 200, TVA: 40, TotalTTC: 240},
		},
		{
			name: "with discount",
			line: Line{Quantity: 1, UnitPrice: 100, VatRate: 10, Discount: 25},
			want: LineTotals{TotalHT: 75, TVA: 7.5, TotalTTC: 82.5},
		},
		{
			name: "rounding to cents",
			line: Line{Quantity: 3, UnitPrice: 33.335, VatRate: 20},
			want: LineTotals{TotalHT: 100.01, TVA: 20, TotalTTC: 120.01},
		},
		{
			name: "invalid quantity treated as zero",
			line: Line{Quantity: math.NaN(), UnitPrice: 100, VatRate: 20},
			want: LineTotals{},
		},
		{
			name: "discount above 100 is capped",
			line: Line{Quantity: 1, UnitPrice: 100, VatRate: 20, Discount: 150},
			want: LineTotals{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalcLine(tc.line)
			if got != tc.want {
				t.Fatalf("CalcLine(%+v) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestCalcIdentityHTPlusTVAEqualsTTC(t *testing.T) {
	lineSets := [][]Line{
		{
			{Quantity: 1, UnitPrice: 149.99, VatRate: 20},
			{Quantity: 2.5, UnitPrice: 45.90, VatRate: 10, Discount: 5},
			{Quantity: 0.333, UnitPrice: 79.95, VatRate: 5.5},
		},
		{
			{Quantity: 7, UnitPrice: 12.345, VatRate: 20, Discount: 12.5},
		},
		{},
	}

	for _, lines := range lineSets {
		totals := Calc(lines)
		if diff := math.Abs(totals.TotalHT + totals.TotalTVA - totals.TotalTTC); diff > 1e-9 {
			t.Fatalf("HT %.2f + TVA %.2f != TTC %.2f (diff %g)", totals.TotalHT, totals.TotalTVA, totals.TotalTTC, diff)
		}
	}
}

func TestCalcLinesAreIndependent(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 100, VatRate: 20},
		{Quantity: 4, UnitPrice: 25.50, VatRate: 10, Discount: 10},
	}
	before := Calc(lines)

	// Changing one line must not affect the other's computed amounts.
	lines[0].UnitPrice = 999.99
	after := Calc(lines)

	if before.Lines[1] != after.Lines[1] {
		t.Fatalf("line 1 changed after editing line 0: %+v vs %+v", before.Lines[1], after.Lines[1])
	}
	if after.Lines[0] == before.Lines[0] {
		t.Fatal("edited line did not change")
	}
}

func TestCalcAggregatesAreSumsOfRoundedLines(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 10.004, VatRate: 20},
		{Quantity: 1, UnitPrice: 10.004, VatRate: 20},
	}
	totals := Calc(lines)

	// Each line rounds to 10.00 before summing; the aggregate must be 20.00,
	// not round(20.008).
	if totals.TotalHT != 20.00 {
		t.Fatalf("TotalHT = %.3f, want 20.00", totals.TotalHT)
	}
}
