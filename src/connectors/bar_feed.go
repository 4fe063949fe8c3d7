package connectors

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"intradaybot/src/model"
)

// BarFeed returns bars for every symbol, sorted by symbol then time.
type BarFeed interface {
	CollectBars(ctx context.Context, symbols []string, timeframe string) ([]model.Bar, error)
}

type barShape struct {
	step    time.Duration
	periods int
}

var simShapes = map[string]barShape{
	model.Timeframe5m:  {step: 5 * time.Minute, periods: 30},
	model.Timeframe15m: {step: 15 * time.Minute, periods: 20},
}

// SimBarFeed generates a deterministic gently rising series per symbol.
// Bars end at the last completed step before now.
type SimBarFeed struct {
	now func() time.Time
}

func NewSimBarFeed() *SimBarFeed {
	return &SimBarFeed{now: time.Now}
}

// symbolSeed maps a symbol onto [0, 10).
func symbolSeed(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return float64(h.Sum32()%1000) / 100
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func (f *SimBarFeed) CollectBars(ctx context.Context, symbols []string, timeframe string) ([]model.Bar, error) {
	shape, ok := simShapes[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := f.now().UTC().Truncate(shape.step)
	bars := make([]model.Bar, 0, len(symbols)*shape.periods)
	for _, symbol := range symbols {
		seed := symbolSeed(symbol)
		base := 50 + seed
		for idx := 0; idx < shape.periods; idx++ {
			i := float64(idx)
			ts := end.Add(-shape.step * time.Duration(shape.periods-idx))

			open := base + i*0.15 + (math.Sin(i+seed)+1)*0.5
			closePx := open + math.Sin(i)*0.3
			high := math.Max(open, closePx) + 0.2
			low := math.Min(open, closePx) - 0.2
			vwap := round2((open + high + low + closePx) / 4)

			bars = append(bars, model.Bar{
				Symbol:    symbol,
				Timeframe: timeframe,
				Ts:        ts.Unix(),
				Open:      round2(open),
				High:      round2(high),
				Low:       round2(low),
				Close:     round2(closePx),
				Volume:    float64(1000 + idx*25 + int(seed*10)),
				VWAP:      &vwap,
			})
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Ts < bars[j].Ts
	})
	return bars, nil
}
