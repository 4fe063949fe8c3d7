package model

import "intradaybot/src/utils"

const (
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
)

// Bar is one OHLCV observation for a symbol and timeframe. Ts is epoch seconds.
type Bar struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Ts        int64    `json:"ts"`
	Open      float64  `json:"open"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	Close     float64  `json:"close"`
	Volume    float64  `json:"volume"`
	VWAP      *float64 `json:"vwap,omitempty"`
}

// IntradayBar is the persisted form of a Bar.
type IntradayBar struct {
	Symbol    string   `gorm:"primaryKey;size:20;column:symbol" json:"symbol"`
	Timeframe string   `gorm:"primaryKey;size:10;column:timeframe" json:"timeframe"`
	Ts        string   `gorm:"primaryKey;size:32;column:ts" json:"ts"`
	Open      float64  `gorm:"not null;column:open" json:"open"`
	High      float64  `gorm:"not null;column:high" json:"high"`
	Low       float64  `gorm:"not null;column:low" json:"low"`
	Close     float64  `gorm:"not null;column:close" json:"close"`
	Volume    float64  `gorm:"not null;column:volume" json:"volume"`
	VWAP      *float64 `gorm:"column:vwap" json:"vwap,omitempty"`
	Source    string   `gorm:"size:20;default:SIM;column:source" json:"source"`
	RunDate   string   `gorm:"size:10;column:run_date" json:"run_date"`
}

func (IntradayBar) TableName() string {
	return "bars_intraday"
}

// NewIntradayBarFromBar converts a feed bar into its storage row.
func NewIntradayBarFromBar(b Bar, source, runDate string) IntradayBar {
	return IntradayBar{
		Symbol:    b.Symbol,
		Timeframe: b.Timeframe,
		Ts:        utils.ToISO(b.Ts),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		VWAP:      b.VWAP,
		Source:    source,
		RunDate:   runDate,
	}
}

// ToBar converts the storage row back into a feed bar.
func (r IntradayBar) ToBar() (Bar, error) {
	ts, err := utils.FromISO(r.Ts)
	if err != nil {
		return Bar{}, err
	}
	return Bar{
		Symbol:    r.Symbol,
		Timeframe: r.Timeframe,
		Ts:        ts,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
		VWAP:      r.VWAP,
	}, nil
}
