package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"intradaybot/src/model"
)

func memoryConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DatabaseURLMain: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		GormLogLevel:    1,
		MaxOpenConns:    4,
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Driver = "oracle"
	_, err := Open(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "oracle")
}

func TestMigrateCreatesSchemaAndViews(t *testing.T) {
	db, err := Open(memoryConfig())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	// second run is a no-op
	require.NoError(t, Migrate(db))

	for _, table := range []string{"bars_intraday", "signals", "orders", "fills", "positions", "trade_journal", "intraday_cycle_run", "app_events"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}

	require.NoError(t, db.Create(&model.IntradayBar{Symbol: "AAPL", Timeframe: "5m", Ts: "2025-03-04T14:30:00Z", Close: 1}).Error)
	require.NoError(t, db.Create(&model.IntradayBar{Symbol: "AAPL", Timeframe: "5m", Ts: "2025-03-04T14:35:00Z", Close: 2}).Error)

	var latest []struct {
		Symbol string
		Ts     string
		Close  float64
	}
	require.NoError(t, db.Raw("SELECT symbol, ts, close FROM v_latest_bars").Scan(&latest).Error)
	require.Len(t, latest, 1)
	require.Equal(t, "2025-03-04T14:35:00Z", latest[0].Ts)
}
