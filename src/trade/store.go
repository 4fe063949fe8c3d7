package trade

import (
	"context"

	"intradaybot/src/model"
)

// DayStats summarises one run date of the journal.
type DayStats struct {
	Entries     int
	RealizedPnl float64
}

// Store mirrors the book and appends the audit trail.
type Store interface {
	RecordOrder(ctx context.Context, order model.Order, fill *model.Fill) error
	UpsertPosition(ctx context.Context, pos model.Position) error
	DeletePosition(ctx context.Context, symbol string) error
	ListPositions(ctx context.Context) ([]model.Position, error)
	OpenTrade(ctx context.Context, entry model.TradeJournalEntry) error
	ScaleOutTrade(ctx context.Context, tradeID string, pnl float64) error
	CloseTrade(ctx context.Context, close TradeClose) error
	DayStats(ctx context.Context, runDate string) (DayStats, error)
}

// TradeClose carries the fields written once when a trade closes.
type TradeClose struct {
	TradeID   string
	CloseTs   string
	ExitPrice float64
	Qty       float64
	Pnl       float64
	PnlPct    float64
	Reason    string
}

// ErrorReporter persists failures that were handled but should be audited.
type ErrorReporter interface {
	Capture(ctx context.Context, module, method, level string, err error, data map[string]interface{})
}

// Observer is notified of lifecycle events.
type Observer interface {
	OrderSubmitted(side Side, status OrderStatus)
	PositionOpened(symbol string)
	PositionScaled(symbol string)
	PositionClosed(symbol, reason string, pnl float64)
}
