// Package rules evaluates the four entry checks against a feature row. A
// missing input fails its rule with a reason instead of returning an error.
package rules

import "intradaybot/src/model"

// PointsPerRule is awarded for every passing rule, with no partial credit.
const PointsPerRule = 25.0

const DefaultConsolidationThreshold = 0.05

type Result struct {
	Passed bool
	Reason string
}

type Config struct {
	VWAPEnforce   bool
	VolSpikeMult  float64
	ConsThreshold float64
}

// Evaluation holds the four rule outcomes in reporting order.
type Evaluation struct {
	EMA           Result
	VWAP          Result
	Volume        Result
	Consolidation Result
}

func (e Evaluation) Results() []Result {
	return []Result{e.EMA, e.VWAP, e.Volume, e.Consolidation}
}

func (e Evaluation) Reasons() []string {
	out := make([]string, 0, 4)
	for _, r := range e.Results() {
		out = append(out, r.Reason)
	}
	return out
}

func (e Evaluation) BaseScore() float64 {
	return BaseScore(e.Results()...)
}

func Evaluate(row model.FeatureRow, cfg Config) Evaluation {
	return Evaluation{
		EMA:           EMAAlignment(row),
		VWAP:          VWAPCheck(row, cfg.VWAPEnforce),
		Volume:        VolumeCheck(row, cfg.VolSpikeMult),
		Consolidation: NotConsolidating(row, cfg.ConsThreshold),
	}
}

// EMAAlignment passes when fast > slow and close > fast.
func EMAAlignment(row model.FeatureRow) Result {
	if row.EMAFast == nil || row.EMASlow == nil || row.Close <= 0 {
		return Result{false, "missing EMA data"}
	}
	if *row.EMAFast > *row.EMASlow && row.Close > *row.EMAFast {
		return Result{true, "EMA fast above slow"}
	}
	return Result{false, "EMA alignment missing"}
}

// VWAPCheck passes when close >= vwap. Without enforcement, or without a
// usable vwap, it always passes.
func VWAPCheck(row model.FeatureRow, enforce bool) Result {
	if row.VWAP == nil || row.Close <= 0 {
		return Result{true, "vwap unavailable"}
	}
	if row.Close >= *row.VWAP || !enforce {
		return Result{true, "Price above VWAP"}
	}
	return Result{false, "Below VWAP"}
}

func VolumeCheck(row model.FeatureRow, mult float64) Result {
	if row.VolumeSpike == nil {
		return Result{false, "volume data missing"}
	}
	if *row.VolumeSpike >= mult {
		return Result{true, "Volume spike"}
	}
	return Result{false, "Volume muted"}
}

func NotConsolidating(row model.FeatureRow, threshold float64) Result {
	if row.Consolidation == nil {
		return Result{false, "consolidation unknown"}
	}
	if *row.Consolidation <= threshold {
		return Result{true, "Range expansion ok"}
	}
	return Result{false, "Still consolidating"}
}

func BaseScore(results ...Result) float64 {
	var score float64
	for _, r := range results {
		if r.Passed {
			score += PointsPerRule
		}
	}
	return score
}
