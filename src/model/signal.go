package model

import (
	"encoding/json"
	"strings"
)

type Decision string

const (
	DecisionEnterLong  Decision = "enter_long"
	DecisionObserve    Decision = "observe"
	DecisionSkipAIVeto Decision = "skip_ai_veto"
)

// RankedSignal is the scoring output for one symbol in one cycle.
type RankedSignal struct {
	Symbol       string   `json:"symbol"`
	BaseScore    float64  `json:"base_score"`
	AIAdjustment float64  `json:"ai_adjustment"`
	ContextBias  float64  `json:"context_bias"`
	Score        float64  `json:"score"`
	Decision     Decision `json:"decision"`
	Gate         Gate     `json:"gate"`
	Reasons      []string `json:"reasons"`
}

// SignalRecord is the append-only audit row of a RankedSignal.
type SignalRecord struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Symbol       string  `gorm:"size:20;not null;uniqueIndex:ux_signals_symbol_ts_tf,priority:1" json:"symbol"`
	Ts           string  `gorm:"size:32;not null;uniqueIndex:ux_signals_symbol_ts_tf,priority:2" json:"ts"`
	Timeframe    string  `gorm:"size:10;not null;uniqueIndex:ux_signals_symbol_ts_tf,priority:3" json:"timeframe"`
	BaseScore    float64 `gorm:"not null" json:"base_score"`
	AIAdjustment float64 `gorm:"default:0" json:"ai_adjustment"`
	ContextBias  float64 `gorm:"default:0" json:"context_bias"`
	FinalScore   float64 `gorm:"not null" json:"final_score"`
	Decision     string  `gorm:"size:20;not null" json:"decision"`
	Gate         string  `gorm:"size:10" json:"gate"`
	ReasonTags   string  `gorm:"type:text" json:"reason_tags"`
	DetailsJSON  string  `gorm:"type:text;column:details_json" json:"details_json"`
	Phase1Rank   *int    `gorm:"column:phase1_rank" json:"phase1_rank,omitempty"`
	RunDate      string  `gorm:"size:10;index" json:"run_date"`
}

func (SignalRecord) TableName() string {
	return "signals"
}

// NewSignalRecord builds the audit row for s at bar time ts.
func NewSignalRecord(s RankedSignal, ts, timeframe, runDate string, rank *int) SignalRecord {
	details, _ := json.Marshal(map[string]interface{}{"reasons": s.Reasons})
	return SignalRecord{
		Symbol:       s.Symbol,
		Ts:           ts,
		Timeframe:    timeframe,
		BaseScore:    s.BaseScore,
		AIAdjustment: s.AIAdjustment,
		ContextBias:  s.ContextBias,
		FinalScore:   s.Score,
		Decision:     string(s.Decision),
		Gate:         string(s.Gate),
		ReasonTags:   strings.Join(s.Reasons, "|"),
		DetailsJSON:  string(details),
		Phase1Rank:   rank,
		RunDate:      runDate,
	}
}
