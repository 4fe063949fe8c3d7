package model

// TradeJournalEntry is the lifetime record of one trade. The close fields are
// written exactly once.
type TradeJournalEntry struct {
	TradeID     string   `gorm:"primaryKey;size:64" json:"trade_id"`
	Symbol      string   `gorm:"size:20;not null;index" json:"symbol"`
	OpenTs      string   `gorm:"size:32;not null" json:"open_ts"`
	CloseTs     *string  `gorm:"size:32" json:"close_ts,omitempty"`
	EntryPrice  float64  `gorm:"not null" json:"entry_price"`
	ExitPrice   *float64 `json:"exit_price,omitempty"`
	Qty         float64  `gorm:"not null" json:"qty"`
	Pnl         *float64 `json:"pnl,omitempty"`
	ScaleOutPnl float64  `gorm:"not null;default:0" json:"scale_out_pnl"`
	PnlPct      *float64 `json:"pnl_pct,omitempty"`
	ReasonOpen  string   `gorm:"type:text" json:"reason_open"`
	ReasonClose *string  `gorm:"type:text" json:"reason_close,omitempty"`
	RunDate     string   `gorm:"size:10;index" json:"run_date"`
}

func (TradeJournalEntry) TableName() string {
	return "trade_journal"
}

// Closed reports whether the close fields have been written.
func (t TradeJournalEntry) Closed() bool {
	return t.CloseTs != nil
}
