package repository

import (
	"context"

	"gorm.io/gorm"

	"intradaybot/src/database"
	"intradaybot/src/model"
	"intradaybot/src/trade"
)

// TradeStore is the gorm-backed trade.Store.
type TradeStore struct {
	orders    *OrderRepository
	positions *PositionRepository
	journal   *TradeJournalRepository
}

var _ trade.Store = (*TradeStore)(nil)

func NewTradeStore() *TradeStore {
	return NewTradeStoreWithDB(database.MainDB)
}

func NewTradeStoreWithDB(db *gorm.DB) *TradeStore {
	return &TradeStore{
		orders:    (&OrderRepository{}).WithDB(db),
		positions: NewPositionRepositoryWithDB(db),
		journal:   NewTradeJournalRepositoryWithDB(db),
	}
}

func (s *TradeStore) RecordOrder(ctx context.Context, order model.Order, fill *model.Fill) error {
	return s.orders.Create(ctx, &order, fill)
}

func (s *TradeStore) UpsertPosition(ctx context.Context, pos model.Position) error {
	return s.positions.Upsert(ctx, pos)
}

func (s *TradeStore) DeletePosition(ctx context.Context, symbol string) error {
	return s.positions.Delete(ctx, symbol)
}

func (s *TradeStore) ListPositions(ctx context.Context) ([]model.Position, error) {
	return s.positions.List(ctx)
}

func (s *TradeStore) OpenTrade(ctx context.Context, entry model.TradeJournalEntry) error {
	return s.journal.Open(ctx, entry)
}

func (s *TradeStore) CloseTrade(ctx context.Context, c trade.TradeClose) error {
	return s.journal.Close(ctx, c.TradeID, CloseFields{
		CloseTs:   c.CloseTs,
		ExitPrice: c.ExitPrice,
		Qty:       c.Qty,
		Pnl:       c.Pnl,
		PnlPct:    c.PnlPct,
		Reason:    c.Reason,
	})
}

func (s *TradeStore) ScaleOutTrade(ctx context.Context, tradeID string, pnl float64) error {
	return s.journal.AddScaleOut(ctx, tradeID, pnl)
}

func (s *TradeStore) DayStats(ctx context.Context, runDate string) (trade.DayStats, error) {
	totals, err := s.journal.DayTotals(ctx, runDate)
	if err != nil {
		return trade.DayStats{}, err
	}
	return trade.DayStats{Entries: totals.Entries, RealizedPnl: totals.RealizedPnl}, nil
}
