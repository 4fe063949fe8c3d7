package model

const (
	CycleStatusOK    = "ok"
	CycleStatusError = "error"
)

// CycleRun is one row per orchestrator cycle.
type CycleRun struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RunDate     string `gorm:"size:10;not null;index" json:"run_date"`
	Timeframe   string `gorm:"size:10;not null" json:"timeframe"`
	StartedTs   string `gorm:"size:32;not null" json:"started_ts"`
	FinishedTs  string `gorm:"size:32" json:"finished_ts"`
	Symbols     int    `json:"symbols"`
	Signals     int    `json:"signals"`
	Entries     int    `json:"entries"`
	Errors      int    `json:"errors"`
	TimingsJSON string `gorm:"type:text;column:timings_json" json:"timings_json,omitempty"`
	Status      string `gorm:"size:10;not null" json:"status"`
	Error       string `gorm:"type:text" json:"error,omitempty"`
	NewsErrored bool   `gorm:"not null;default:false" json:"news_errored"`
}

func (CycleRun) TableName() string {
	return "intraday_cycle_run"
}
