package features

import (
	"intradaybot/src/indicator"
	"intradaybot/src/model"
)

const (
	week52Weight = 0.10
	gapWeight    = 0.05
	relVolWeight = 0.05
)

// Config carries the indicator periods used to build a snapshot.
type Config struct {
	EMAFast   int
	EMASlow   int
	ATRPeriod int
	// Lookback is shared by the consolidation window and the volume baseline.
	Lookback int
}

// BuildSnapshot groups bars by symbol, sorts each series and keeps the latest
// indicator values. Symbols without bars are absent from the result.
func BuildSnapshot(bars []model.Bar, ctx map[string]model.ContextFields, cfg Config) model.Snapshot {
	grouped := make(map[string][]model.Bar)
	for _, b := range bars {
		grouped[b.Symbol] = append(grouped[b.Symbol], b)
	}

	snapshot := make(model.Snapshot, len(grouped))
	for symbol, series := range grouped {
		series = indicator.SortBars(series)
		if len(series) == 0 {
			continue
		}
		snapshot[symbol] = buildRow(symbol, series, ctx[symbol], cfg)
	}
	return snapshot
}

func buildRow(symbol string, series []model.Bar, ctx model.ContextFields, cfg Config) model.FeatureRow {
	closes := indicator.Closes(series)
	volumes := indicator.Volumes(series)
	last := len(series) - 1
	latest := series[last]

	emaFast := indicator.EMA(closes, cfg.EMAFast)
	emaSlow := indicator.EMA(closes, cfg.EMASlow)
	vwap := indicator.VWAP(series)
	atr := indicator.ATR(series, cfg.ATRPeriod)
	spike := indicator.VolumeSpike(volumes, indicator.VolumeBaseline(volumes, cfg.Lookback))
	cons := indicator.ConsolidationScore(series, cfg.Lookback)

	row := model.FeatureRow{
		Symbol:        symbol,
		Ts:            latest.Ts,
		Close:         latest.Close,
		High:          latest.High,
		Low:           latest.Low,
		Volume:        latest.Volume,
		EMAFast:       model.Float(emaFast[last]),
		EMASlow:       model.Float(emaSlow[last]),
		VWAP:          model.Float(vwap[last]),
		ATR:           model.Float(atr[last]),
		VolumeSpike:   model.Float(spike[last]),
		Consolidation: model.Float(cons[last]),
	}
	if len(ctx) > 0 {
		row.ContextBias = ContextBias(ctx)
		row.Context = ctx
	}
	return row
}

// ContextBias blends the numeric 52-week position, gap percent and relative
// volume of the static context. Text or missing values contribute nothing.
func ContextBias(ctx model.ContextFields) float64 {
	var bias float64
	if v, ok := ctx.Number("week52_pos"); ok {
		bias += v * week52Weight
	}
	if v, ok := ctx.Number("gap_pct"); ok {
		bias += v * gapWeight
	}
	if v, ok := ctx.Number("rel_volume"); ok {
		bias += (v - 1) * relVolWeight
	}
	return bias
}
