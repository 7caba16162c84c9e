// Package format converts raw aggregates into their published form. Rounding
// and money arithmetic happen here and nowhere else.
package format

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds f to two decimals, half away from zero. The value is parsed
// from its shortest decimal representation, so 1.005 rounds to 1.01.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// RoundInt rounds f to the nearest integer, half away from zero.
func RoundInt(f float64) int64 {
	return decimal.NewFromFloat(f).Round(0).IntPart()
}

// Percent returns part / whole as a percentage rounded to two decimals. A
// zero whole yields zero.
func Percent(part, whole float64) float64 {
	w := decimal.NewFromFloat(whole)
	if w.IsZero() {
		return 0
	}
	return decimal.NewFromFloat(part).Div(w).Mul(hundred).Round(2).InexactFloat64()
}

// ApplyRate computes the levy of ratePercent on amount and the resulting
// total, each rounded to two decimals. The total adds the rounded levy.
func ApplyRate(amount float64, ratePercent int) (levy, total float64) {
	base := decimal.NewFromFloat(amount)
	l := base.Mul(decimal.NewFromInt(int64(ratePercent))).Div(hundred).Round(2)
	return l.InexactFloat64(), base.Add(l).Round(2).InexactFloat64()
}

// Mean returns total / count rounded to the nearest integer. A zero count
// yields zero.
func Mean(total float64, count int) int64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromFloat(total).Div(decimal.NewFromInt(int64(count))).Round(0).IntPart()
}

// Sum adds values in decimal arithmetic without rounding, so sub-cent
// amounts add up exactly: Sum(1.005, 1.005, 1.005) is 3.015.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}
