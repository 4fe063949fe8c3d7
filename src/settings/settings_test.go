package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "America/Toronto")
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RunModeOnce, s.RunMode)
	assert.True(t, s.Simulation)
	assert.Equal(t, 9, s.EMAFast)
	assert.Equal(t, 21, s.EMASlow)
	assert.Equal(t, "15:55", s.FlattenET)
	assert.Equal(t, 5*time.Minute, s.Interval5m)
	assert.Equal(t, "America/Toronto", s.Location().String())

	tc := s.TradeConfig()
	assert.Equal(t, 100000.0, tc.Equity)
	assert.Equal(t, 1.5, tc.ATRMult)
	assert.Equal(t, 8, tc.MaxTradesPerDay)

	sc := s.ScoringConfig()
	assert.Equal(t, 20, sc.TopK)
	assert.True(t, sc.Rules.VWAPEnforce)
	assert.Equal(t, 2.0, sc.Rules.VolSpikeMult)
	assert.Equal(t, 20, s.FeatureConfig().Lookback)
	assert.Equal(t, "symbol", s.WatchlistConfig().SymbolKey)
}

func TestATRPeriodFollowsSlowEMA(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("EMA_SLOW", "34")
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, s.ATRPeriod)
	assert.Equal(t, 34, s.FeatureConfig().ATRPeriod)

	t.Setenv("ATR_PERIOD", "14")
	s, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 14, s.FeatureConfig().ATRPeriod)
	assert.Equal(t, 34, s.FeatureConfig().EMASlow)
}

func TestLoadNormalizesCase(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("RUN_MODE", "Daemon")
	t.Setenv("AI_MODEL", "ONNX")
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, RunModeDaemon, s.RunMode)
	assert.Equal(t, AIModelONNX, s.AIModel)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Setenv("TZ", "UTC")
	base, err := Load()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*AppSettings)
		want   error
	}{
		{"run mode", func(s *AppSettings) { s.RunMode = "twice" }, ErrInvalidRunMode},
		{"ema order", func(s *AppSettings) { s.EMAFast = 21; s.EMASlow = 9 }, ErrInvalidEMA},
		{"ema zero", func(s *AppSettings) { s.EMAFast = 0 }, ErrInvalidEMA},
		{"flatten", func(s *AppSettings) { s.FlattenET = "25:99" }, ErrInvalidFlatten},
		{"risk", func(s *AppSettings) { s.RiskPctPerTrade = 0 }, ErrInvalidRisk},
		{"targets", func(s *AppSettings) { s.Scale1Pct = 9 }, ErrInvalidTargets},
		{"ai model", func(s *AppSettings) { s.AIModel = "finbert" }, ErrInvalidAIModel},
		{"notifier", func(s *AppSettings) { s.Notifier = "sms" }, ErrInvalidNotifier},
		{"timezone", func(s *AppSettings) { s.TZ = "Mars/Olympus" }, ErrInvalidTimezone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base
			tc.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}

	s := base
	s.RunMode = "x"
	s.Notifier = "y"
	err = s.Validate()
	assert.ErrorIs(t, err, ErrInvalidRunMode)
	assert.ErrorIs(t, err, ErrInvalidNotifier)
}

func TestLoadReturnsProcessErrors(t *testing.T) {
	t.Setenv("EMA_FAST", "nine")
	_, err := Load()
	require.Error(t, err)
}
