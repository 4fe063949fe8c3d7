package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

const latestBarsView = `
CREATE VIEW v_latest_bars AS
SELECT b.symbol, b.timeframe, b.ts, b.open, b.high, b.low, b.close, b.volume, b.vwap
FROM bars_intraday b
JOIN (
  SELECT symbol, timeframe, MAX(ts) AS max_ts
  FROM bars_intraday
  GROUP BY symbol, timeframe
) t ON b.symbol = t.symbol AND b.timeframe = t.timeframe AND b.ts = t.max_ts`

// v_focus_symbols annotates every watchlist symbol with its latest signal.
const focusSymbolsView = `
CREATE VIEW v_focus_symbols AS
SELECT
  r.run_date,
  w.symbol,
  w.rank,
  (SELECT s.ts FROM signals s WHERE s.symbol = w.symbol ORDER BY s.ts DESC LIMIT 1) AS last_signal_ts,
  (SELECT s.final_score FROM signals s WHERE s.symbol = w.symbol ORDER BY s.ts DESC LIMIT 1) AS last_final_score,
  (SELECT s.decision FROM signals s WHERE s.symbol = w.symbol ORDER BY s.ts DESC LIMIT 1) AS last_decision
FROM watchlist_items w
JOIN watchlist_runs r ON r.run_id = w.run_id`

func replaceView(db *gorm.DB, name, ddl string) error {
	if err := db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", name)).Error; err != nil {
		return fmt.Errorf("drop view %s: %w", name, err)
	}
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("create view %s: %w", name, err)
	}
	return nil
}

func createLatestBarsView(db *gorm.DB) error {
	return replaceView(db, "v_latest_bars", latestBarsView)
}

func createFocusSymbolsView(db *gorm.DB) error {
	return replaceView(db, "v_focus_symbols", focusSymbolsView)
}

func indexTradesSymbolTime(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trade_journal(symbol, open_ts)").Error
}
