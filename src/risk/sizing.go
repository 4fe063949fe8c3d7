package risk

import "github.com/shopspring/decimal"

var (
	// MinStopDistance keeps the risk per share away from zero.
	MinStopDistance = decimal.RequireFromString("0.01")
	// MinPrice is the lowest stop a new entry may carry.
	MinPrice = decimal.RequireFromString("0.01")

	hundred = decimal.NewFromInt(100)
)

// DefaultATRPct is the ATR fallback as a fraction of price.
const DefaultATRPct = 0.02

// PositionSize returns round((equity * riskPct/100) / max(price-stop, 0.01)),
// rounding half away from zero. Anything that is not a positive quantity is 0.
func PositionSize(equity, riskPct, price, stop float64) float64 {
	riskAmount := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(riskPct)).Div(hundred)
	distance := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(stop))
	if distance.LessThan(MinStopDistance) {
		distance = MinStopDistance
	}
	qty := riskAmount.Div(distance).Round(0)
	if qty.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return qty.InexactFloat64()
}

// EntryStop is price - atr*mult, floored at 0.01.
func EntryStop(price, atr, mult float64) float64 {
	stop := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(atr).Mul(decimal.NewFromFloat(mult)))
	if stop.LessThan(MinPrice) {
		stop = MinPrice
	}
	return stop.InexactFloat64()
}

// ATROrDefault returns atr when it is known, otherwise 2% of price. A known
// ATR of 0 is kept: the stop sits at price and sizing uses MinStopDistance.
func ATROrDefault(atr *float64, price float64) float64 {
	if atr != nil {
		return *atr
	}
	return price * DefaultATRPct
}
