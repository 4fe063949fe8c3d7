package model

import (
	"encoding/json"
	"sort"
)

// ContextValue is a passthrough field from the static watchlist context.
// Exactly one of Num or Text is set.
type ContextValue struct {
	Num  *float64 `json:"num,omitempty"`
	Text *string  `json:"text,omitempty"`
}

func NumValue(v float64) ContextValue { return ContextValue{Num: &v} }
func TextValue(v string) ContextValue { return ContextValue{Text: &v} }

// Interface returns the raw value for JSON encoding.
func (v ContextValue) Interface() interface{} {
	switch {
	case v.Num != nil:
		return *v.Num
	case v.Text != nil:
		return *v.Text
	default:
		return nil
	}
}

// ContextFields holds the static context of one watchlist symbol keyed by field name.
type ContextFields map[string]ContextValue

// Number returns the numeric value stored under key.
func (c ContextFields) Number(key string) (float64, bool) {
	v, ok := c[key]
	if !ok || v.Num == nil {
		return 0, false
	}
	return *v.Num, true
}

// Keys returns the field names in ascending order.
func (c ContextFields) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FeatureRow is the per-cycle snapshot of one symbol. Indicator fields are nil
// when the input needed to compute them is missing.
type FeatureRow struct {
	Symbol        string        `json:"symbol"`
	Ts            int64         `json:"ts"`
	Close         float64       `json:"c"`
	High          float64       `json:"h"`
	Low           float64       `json:"l"`
	Volume        float64       `json:"v"`
	EMAFast       *float64      `json:"ema_fast"`
	EMASlow       *float64      `json:"ema_slow"`
	VWAP          *float64      `json:"vwap"`
	ATR           *float64      `json:"atr"`
	VolumeSpike   *float64      `json:"volume_spike"`
	Consolidation *float64      `json:"consolidation"`
	ContextBias   float64       `json:"context_bias"`
	Context       ContextFields `json:"-"`
}

// Snapshot is one cycle's feature rows keyed by symbol.
type Snapshot map[string]FeatureRow

// Symbols returns the snapshot symbols in ascending order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Float returns a pointer to v; used to fill optional indicator fields.
func Float(v float64) *float64 { return &v }

// FeaturesJSON flattens the row and its context (prefixed with ctx_) into JSON.
func (r FeatureRow) FeaturesJSON() (string, error) {
	flat := map[string]interface{}{
		"symbol":        r.Symbol,
		"c":             r.Close,
		"h":             r.High,
		"l":             r.Low,
		"v":             r.Volume,
		"ema_fast":      r.EMAFast,
		"ema_slow":      r.EMASlow,
		"vwap":          r.VWAP,
		"atr":           r.ATR,
		"volume_spike":  r.VolumeSpike,
		"consolidation": r.Consolidation,
		"context_bias":  r.ContextBias,
	}
	for key, val := range r.Context {
		flat["ctx_"+key] = val.Interface()
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FeatureRecord is the persisted feature snapshot of one symbol for one bar.
type FeatureRecord struct {
	Symbol       string `gorm:"primaryKey;size:20;column:symbol" json:"symbol"`
	Ts           string `gorm:"primaryKey;size:32;column:ts" json:"ts"`
	Timeframe    string `gorm:"primaryKey;size:10;column:timeframe" json:"timeframe"`
	FeaturesJSON string `gorm:"type:text;not null;column:features_json" json:"features_json"`
}

func (FeatureRecord) TableName() string {
	return "intraday_features"
}
