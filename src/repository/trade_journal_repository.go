package repository

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// ErrTradeNotOpen is returned when closing a trade that is unknown or already closed.
var ErrTradeNotOpen = errors.New("trade not open")

// TradeJournalRepository stores one row per trade lifetime.
type TradeJournalRepository struct {
	db *gorm.DB
}

func NewTradeJournalRepository() *TradeJournalRepository {
	return &TradeJournalRepository{db: database.MainDB}
}

func NewTradeJournalRepositoryWithDB(db *gorm.DB) *TradeJournalRepository {
	return &TradeJournalRepository{db: db}
}

func (r *TradeJournalRepository) Open(ctx context.Context, entry model.TradeJournalEntry) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// CloseFields are written once when a trade is closed.
type CloseFields struct {
	CloseTs   string
	ExitPrice float64
	Qty       float64
	Pnl       float64
	PnlPct    float64
	Reason    string
}

// Close writes the close fields of tradeID. Only rows with no close_ts are
// updated, so a second close returns ErrTradeNotOpen and changes nothing.
func (r *TradeJournalRepository) Close(ctx context.Context, tradeID string, f CloseFields) error {
	res := r.db.WithContext(ctx).
		Model(&model.TradeJournalEntry{}).
		Where("trade_id = ? AND close_ts IS NULL", tradeID).
		Updates(map[string]interface{}{
			"close_ts":     f.CloseTs,
			"exit_price":   f.ExitPrice,
			"qty":          f.Qty,
			"pnl":          f.Pnl,
			"pnl_pct":      f.PnlPct,
			"reason_close": f.Reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeJournalRepository",
			"op":       "Close",
			"trade_id": tradeID,
		}).Warn("Trade already closed or missing")
		return fmt.Errorf("close %s: %w", tradeID, ErrTradeNotOpen)
	}
	return nil
}

// AddScaleOut adds the realized pnl of a partial exit to an open trade.
func (r *TradeJournalRepository) AddScaleOut(ctx context.Context, tradeID string, pnl float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.TradeJournalEntry{}).
		Where("trade_id = ? AND close_ts IS NULL", tradeID).
		UpdateColumn("scale_out_pnl", gorm.Expr("scale_out_pnl + ?", pnl))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scale out %s: %w", tradeID, ErrTradeNotOpen)
	}
	return nil
}

// FindByTradeID returns (nil, nil) if the trade is unknown.
func (r *TradeJournalRepository) FindByTradeID(ctx context.Context, tradeID string) (*model.TradeJournalEntry, error) {
	var entry model.TradeJournalEntry
	err := r.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByRunDate returns the trades opened on runDate, oldest first.
func (r *TradeJournalRepository) ListByRunDate(ctx context.Context, runDate string) ([]model.TradeJournalEntry, error) {
	var rows []model.TradeJournalEntry
	err := r.db.WithContext(ctx).
		Where("run_date = ?", runDate).
		Order("open_ts ASC").
		Find(&rows).Error
	return rows, err
}

// DayTotals aggregates the entries and realized pnl of runDate, scale-outs included.
type DayTotals struct {
	Entries     int
	RealizedPnl float64
}

func (r *TradeJournalRepository) DayTotals(ctx context.Context, runDate string) (DayTotals, error) {
	var out struct {
		Entries int
		Pnl     float64
	}
	err := r.db.WithContext(ctx).
		Model(&model.TradeJournalEntry{}).
		Select("COUNT(*) AS entries, COALESCE(SUM(pnl), 0) + COALESCE(SUM(scale_out_pnl), 0) AS pnl").
		Where("run_date = ?", runDate).
		Scan(&out).Error
	if err != nil {
		return DayTotals{}, err
	}
	return DayTotals{Entries: out.Entries, RealizedPnl: out.Pnl}, nil
}
