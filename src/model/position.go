package model

// Position is the live state of one open long. At most one exists per symbol.
type Position struct {
	Symbol       string  `gorm:"primaryKey;size:20" json:"symbol"`
	Qty          float64 `gorm:"not null" json:"qty"`
	AvgPrice     float64 `gorm:"not null" json:"avg_price"`
	StopPrice    float64 `gorm:"not null" json:"stop_price"`
	ScaleTarget  float64 `gorm:"not null" json:"scale_target"`
	FinalTarget  float64 `gorm:"not null" json:"final_target"`
	Scaled       bool    `gorm:"not null;default:false" json:"scaled"`
	TradeID      string  `gorm:"size:64;not null" json:"trade_id"`
	OpenedTs     string  `gorm:"size:32" json:"opened_ts"`
	LastUpdateTs string  `gorm:"size:32" json:"last_update_ts"`
}

func (Position) TableName() string {
	return "positions"
}

const (
	CloseReasonStop   = "stop hit"
	CloseReasonTarget = "target hit"
	CloseReasonEOD    = "EOD flatten"
)
