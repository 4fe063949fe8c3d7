package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intradaybot/src/model"
)

func TestBarRepositoryUpsertAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewBarRepositoryWithDB(newSQLiteDB(t))

	var bars []model.Bar
	for i := int64(0); i < 5; i++ {
		bars = append(bars, model.Bar{Symbol: "AAPL", Timeframe: model.Timeframe5m, Ts: 1741100400 + i*300, Open: 1, High: 2, Low: 0.5, Close: float64(i + 1), Volume: 100})
	}
	require.NoError(t, repo.UpsertBars(ctx, bars, "SIM", "2025-03-04"))

	bars[4].Close = 42
	require.NoError(t, repo.UpsertBars(ctx, bars[4:], "SIM", "2025-03-04"))

	recent, err := repo.RecentBars(ctx, "AAPL", model.Timeframe5m, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, bars[2].Ts, recent[0].Ts)
	assert.Equal(t, bars[4].Ts, recent[2].Ts)
	assert.Equal(t, 42.0, recent[2].Close)

	other, err := repo.RecentBars(ctx, "AAPL", model.Timeframe15m, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestBarRepositoryUpsertFeatures(t *testing.T) {
	ctx := context.Background()
	repo := NewBarRepositoryWithDB(newSQLiteDB(t))

	snapshot := model.Snapshot{
		"AAPL": {
			Symbol:  "AAPL",
			Ts:      1741100400,
			Close:   101,
			EMAFast: model.Float(100.5),
			Context: model.ContextFields{"sector": model.TextValue("Tech")},
		},
	}
	require.NoError(t, repo.UpsertFeatures(ctx, snapshot, model.Timeframe5m))
	snapshot["AAPL"] = model.FeatureRow{Symbol: "AAPL", Ts: 1741100400, Close: 102}
	require.NoError(t, repo.UpsertFeatures(ctx, snapshot, model.Timeframe5m))

	rows, err := repo.Features(ctx, "AAPL", model.Timeframe5m)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rows[0].FeaturesJSON), &payload))
	assert.Equal(t, 102.0, payload["c"])
	assert.NotContains(t, payload, "ctx_sector")
}
