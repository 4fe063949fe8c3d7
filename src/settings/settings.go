// Package settings loads and validates the strategy configuration.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"intradaybot/src/features"
	"intradaybot/src/risk"
	"intradaybot/src/rules"
	"intradaybot/src/scoring"
	"intradaybot/src/sentiment"
	"intradaybot/src/trade"
	"intradaybot/src/watchlist"
)

const (
	RunModeOnce   = "once"
	RunModeDaemon = "daemon"

	AIModelLexicon = "lexicon"
	AIModelONNX    = "onnx"
)

var (
	ErrInvalidRunMode  = errors.New("RUN_MODE must be 'once' or 'daemon'")
	ErrInvalidEMA      = errors.New("EMA settings invalid")
	ErrInvalidFlatten  = errors.New("FLATTEN_ET must be HH:MM")
	ErrInvalidRisk     = errors.New("risk settings invalid")
	ErrInvalidTargets  = errors.New("SCALE1_PCT must be below TARGET_PCT")
	ErrInvalidAIModel  = errors.New("AI_MODEL must be 'lexicon' or 'onnx'")
	ErrInvalidNotifier = errors.New("NOTIFIER must be 'log', 'pushover' or 'telegram'")
	ErrInvalidTimezone = errors.New("TZ is not a known location")
)

type AppSettings struct {
	RunMode    string `envconfig:"RUN_MODE" default:"once"`
	TZ         string `envconfig:"TZ" default:"America/Toronto"`
	Simulation bool   `envconfig:"SIMULATION" default:"true"`

	WatchlistFile      string `envconfig:"WATCHLIST_FILE"`
	WatchlistGlob      string `envconfig:"WATCHLIST_GLOB"`
	WatchlistSymbolKey string `envconfig:"WATCHLIST_SYMBOL_KEY" default:"symbol"`

	EMAFast       int     `envconfig:"EMA_FAST" default:"9"`
	EMASlow       int     `envconfig:"EMA_SLOW" default:"21"`
	ATRPeriod     int     `envconfig:"ATR_PERIOD"` // 0 follows EMA_SLOW
	VolSpikeMult  float64 `envconfig:"VOL_SPIKE_MULT" default:"2.0"`
	ConsLookback  int     `envconfig:"CONS_LOOKBACK_MIN" default:"20"`
	ConsThreshold float64 `envconfig:"CONS_THRESHOLD" default:"0.05"`
	VWAPEnforce   bool    `envconfig:"VWAP_ENFORCE" default:"true"`

	CatalystFreshHours int     `envconfig:"CATALYST_FRESH_HOURS" default:"6"`
	TopKExecute        int     `envconfig:"TOP_K_EXECUTE" default:"20"`
	RegimeMultiplier   float64 `envconfig:"REGIME_MULTIPLIER" default:"1.0"`

	Equity               float64 `envconfig:"ACCOUNT_EQUITY" default:"100000"`
	RiskPctPerTrade      float64 `envconfig:"RISK_PCT_PER_TRADE" default:"1.0"`
	ATRMult              float64 `envconfig:"ATR_MULT" default:"1.5"`
	Scale1Pct            float64 `envconfig:"SCALE1_PCT" default:"4.0"`
	TargetPct            float64 `envconfig:"TARGET_PCT" default:"8.0"`
	MaxTradesPerDay      int     `envconfig:"MAX_TRADES_PER_DAY" default:"8"`
	DailyDrawdownHaltPct float64 `envconfig:"DAILY_DRAWDOWN_HALT_PCT" default:"4.0"`
	FlattenET            string  `envconfig:"FLATTEN_ET" default:"15:55"`

	AISentimentEnabled bool   `envconfig:"AI_SENTIMENT_ENABLED" default:"true"`
	AIModel            string `envconfig:"AI_MODEL" default:"lexicon"`
	AISoftVeto         bool   `envconfig:"AI_SOFT_VETO" default:"true"`

	Notifier string `envconfig:"NOTIFIER" default:"log"`

	ServerPort        string        `envconfig:"SERVER_PORT"`
	Interval5m        time.Duration `envconfig:"CYCLE_INTERVAL_5M" default:"5m"`
	Interval15m       time.Duration `envconfig:"CYCLE_INTERVAL_15M" default:"15m"`
	FlattenCheckEvery time.Duration `envconfig:"FLATTEN_CHECK_EVERY" default:"30s"`
}

// Load reads the environment and validates the result.
func Load() (AppSettings, error) {
	var s AppSettings
	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("process env: %w", err)
	}
	s.RunMode = strings.ToLower(s.RunMode)
	s.AIModel = strings.ToLower(s.AIModel)
	s.Notifier = strings.ToLower(s.Notifier)
	return s, s.Validate()
}

// Validate reports every invalid setting.
func (s AppSettings) Validate() error {
	var errs []error
	if s.RunMode != RunModeOnce && s.RunMode != RunModeDaemon {
		errs = append(errs, ErrInvalidRunMode)
	}
	if s.EMAFast <= 0 || s.EMASlow <= 0 || s.EMAFast >= s.EMASlow {
		errs = append(errs, ErrInvalidEMA)
	}
	if _, _, err := risk.ParseHHMM(s.FlattenET); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidFlatten, err))
	}
	if s.Equity <= 0 || s.RiskPctPerTrade <= 0 || s.ATRMult <= 0 {
		errs = append(errs, ErrInvalidRisk)
	}
	if s.Scale1Pct <= 0 || s.Scale1Pct >= s.TargetPct {
		errs = append(errs, ErrInvalidTargets)
	}
	if s.AIModel != AIModelLexicon && s.AIModel != AIModelONNX {
		errs = append(errs, ErrInvalidAIModel)
	}
	switch s.Notifier {
	case "log", "pushover", "telegram":
	default:
		errs = append(errs, ErrInvalidNotifier)
	}
	if _, err := time.LoadLocation(s.TZ); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTimezone, err))
	}
	return errors.Join(errs...)
}

// Location is the zone used for run dates. Validate guarantees it loads.
func (s AppSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s AppSettings) FeatureConfig() features.Config {
	atrPeriod := s.ATRPeriod
	if atrPeriod <= 0 {
		atrPeriod = s.EMASlow
	}
	return features.Config{
		EMAFast:   s.EMAFast,
		EMASlow:   s.EMASlow,
		ATRPeriod: atrPeriod,
		Lookback:  s.ConsLookback,
	}
}

func (s AppSettings) RulesConfig() rules.Config {
	return rules.Config{
		VWAPEnforce:   s.VWAPEnforce,
		VolSpikeMult:  s.VolSpikeMult,
		ConsThreshold: s.ConsThreshold,
	}
}

func (s AppSettings) ScoringConfig() scoring.Config {
	return scoring.Config{
		Rules:            s.RulesConfig(),
		SoftVeto:         s.AISoftVeto,
		TopK:             s.TopKExecute,
		RegimeMultiplier: s.RegimeMultiplier,
	}
}

func (s AppSettings) SentimentConfig() sentiment.Config {
	return sentiment.Config{
		Enabled:  s.AISentimentEnabled,
		SoftVeto: s.AISoftVeto,
	}
}

func (s AppSettings) TradeConfig() trade.Config {
	return trade.Config{
		Equity:               s.Equity,
		RiskPct:              s.RiskPctPerTrade,
		ATRMult:              s.ATRMult,
		Scale1Pct:            s.Scale1Pct,
		TargetPct:            s.TargetPct,
		MaxTradesPerDay:      s.MaxTradesPerDay,
		DailyDrawdownHaltPct: s.DailyDrawdownHaltPct,
	}
}

func (s AppSettings) WatchlistConfig() watchlist.Config {
	return watchlist.Config{
		File:      s.WatchlistFile,
		Glob:      s.WatchlistGlob,
		SymbolKey: s.WatchlistSymbolKey,
		Location:  s.Location(),
	}
}
