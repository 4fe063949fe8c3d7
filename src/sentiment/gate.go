package sentiment

import "intradaybot/src/model"

const (
	VetoThreshold     = -0.7
	SoftVetoThreshold = -0.4
)

// Gate classifies a sentiment score. It is the only place the veto
// thresholds are applied.
func Gate(score float64, softVeto bool) (model.Gate, string) {
	switch {
	case score <= VetoThreshold:
		return model.GateVeto, "strong negative sentiment"
	case score <= SoftVetoThreshold && softVeto:
		return model.GateSoftVeto, "soft negative sentiment"
	default:
		return model.GatePass, "neutral or positive"
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
