// Package indicator holds the pure series transforms applied to one symbol's
// bars, ordered ascending by timestamp. Every function returns one value per
// input element.
package indicator

import (
	"math"
	"sort"

	"intradaybot/src/model"
)

// SortBars orders bars ascending by timestamp in place and drops later
// duplicates of the same timestamp.
func SortBars(bars []model.Bar) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Ts < bars[j].Ts })
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Ts == out[len(out)-1].Ts {
			continue
		}
		out = append(out, b)
	}
	return out
}

func window(period int) int {
	if period <= 0 {
		return 1
	}
	return period
}

// EMA seeds with the first value and smooths with alpha = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(window(period)) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// TypicalPrice is (high+low+close)/3.
func TypicalPrice(b model.Bar) float64 {
	return (b.High + b.Low + b.Close) / 3
}

// VWAP is the running sum(typical*volume)/sum(volume). While cumulative volume
// is zero the bar's typical price is used.
func VWAP(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	var pv, vol float64
	for i, b := range bars {
		tp := TypicalPrice(b)
		pv += tp * b.Volume
		vol += b.Volume
		if vol == 0 {
			out[i] = tp
			continue
		}
		out[i] = pv / vol
	}
	return out
}

// TrueRange of the first bar is high-low.
func TrueRange(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR averages true range over a trailing window of min(period, i+1) bars.
func ATR(bars []model.Bar, period int) []float64 {
	return trailingMean(TrueRange(bars), window(period))
}

// ConsolidationScore is the trailing window's (max high - min low) divided by
// its mean close. Higher means a wider range, i.e. not consolidating.
func ConsolidationScore(bars []model.Bar, lookback int) []float64 {
	lb := window(lookback)
	out := make([]float64, len(bars))
	for i := range bars {
		start := i - lb + 1
		if start < 0 {
			start = 0
		}
		hi, lo := math.Inf(-1), math.Inf(1)
		var sum float64
		for _, b := range bars[start : i+1] {
			hi = math.Max(hi, b.High)
			lo = math.Min(lo, b.Low)
			sum += b.Close
		}
		mean := sum / float64(i+1-start)
		if mean == 0 {
			continue
		}
		out[i] = (hi - lo) / mean
	}
	return out
}

// VolumeBaseline is the trailing simple average of volume, current bar included.
func VolumeBaseline(volumes []float64, lookback int) []float64 {
	return trailingMean(volumes, window(lookback))
}

// VolumeSpike divides each volume by its baseline, 0 where the baseline is 0.
func VolumeSpike(volumes, baseline []float64) []float64 {
	out := make([]float64, len(volumes))
	for i, v := range volumes {
		if i >= len(baseline) || baseline[i] == 0 {
			continue
		}
		out[i] = v / baseline[i]
	}
	return out
}

// Closes extracts the close series.
func Closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series.
func Volumes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// trailingMean sums each window directly so a flat run after a volatile one
// averages to exactly its value, with no residue from removed terms.
func trailingMean(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, v := range values[start : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-start)
	}
	return out
}
