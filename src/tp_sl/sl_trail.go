package tp_sl

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TargetFromPct returns fill * (1 + pct/100).
func TargetFromPct(fill, pct float64) float64 {
	f := decimal.NewFromFloat(fill)
	return f.Add(f.Mul(decimal.NewFromFloat(pct)).Div(hundred)).InexactFloat64()
}

// Targets returns the scale-out and final targets of a long entry.
func Targets(fill, scalePct, targetPct float64) (scale, final float64) {
	return TargetFromPct(fill, scalePct), TargetFromPct(fill, targetPct)
}

// ComputeTrailingStop tightens a long stop to the trailing level. The stop
// only ever moves up.
func ComputeTrailingStop(currentSL, trail float64) (newSL float64, moved bool) {
	if trail > currentSL {
		return trail, true
	}
	return currentSL, false
}

// HalfQty splits a position for the scale-out sell.
func HalfQty(qty float64) (sell, remaining float64) {
	q := decimal.NewFromFloat(qty)
	half := q.Div(decimal.NewFromInt(2))
	return half.InexactFloat64(), q.Sub(half).InexactFloat64()
}

// RealizedPnL is (exit - avg) * qty for a long.
func RealizedPnL(exit, avg, qty float64) float64 {
	return decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(avg)).Mul(decimal.NewFromFloat(qty)).InexactFloat64()
}

// PnLPct is the exit move relative to the average entry, in percent.
func PnLPct(exit, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	a := decimal.NewFromFloat(avg)
	return decimal.NewFromFloat(exit).Sub(a).Div(a).Mul(hundred).InexactFloat64()
}
