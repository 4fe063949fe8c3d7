package model

// Gate classifies sentiment before it may influence ranking.
type Gate string

const (
	GatePass     Gate = "PASS"
	GateSoftVeto Gate = "SOFT_VETO"
	GateVeto     Gate = "VETO"
)

// SentimentResult is the per-symbol output of the sentiment gate for one cycle.
type SentimentResult struct {
	Symbol  string   `json:"symbol"`
	Score   float64  `json:"score"`
	Gate    Gate     `json:"gate"`
	Reasons []string `json:"reasons"`
}

// NeutralSentiment is used when a symbol has no news.
func NeutralSentiment(symbol string) SentimentResult {
	return SentimentResult{Symbol: symbol, Score: 0, Gate: GatePass, Reasons: []string{"no news"}}
}

// AIProvenance records the inputs and outputs of every model-scored symbol.
type AIProvenance struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Symbol       string  `gorm:"size:20;not null;index:idx_ai_prov_symbol_ts,priority:1" json:"symbol"`
	Ts           string  `gorm:"size:32;not null;index:idx_ai_prov_symbol_ts,priority:2" json:"ts"`
	ModelName    string  `gorm:"size:50;not null" json:"model_name"`
	InputsJSON   string  `gorm:"type:text;column:inputs_json" json:"inputs_json"`
	OutputsJSON  string  `gorm:"type:text;column:outputs_json" json:"outputs_json"`
	DeltaApplied float64 `json:"delta_applied"`
	Notes        string  `gorm:"type:text" json:"notes"`
}

func (AIProvenance) TableName() string {
	return "ai_provenance"
}
