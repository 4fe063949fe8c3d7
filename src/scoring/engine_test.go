package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intradaybot/src/model"
	"intradaybot/src/rules"
)

type auditRecorder struct {
	calls   int
	signals []model.RankedSignal
	err     error
}

func (a *auditRecorder) RecordSignals(_ context.Context, s []model.RankedSignal) error {
	a.calls++
	a.signals = append(a.signals, s...)
	return a.err
}

var ruleCfg = rules.Config{VWAPEnforce: true, VolSpikeMult: 2.0, ConsThreshold: 0.05}

func strongRow(symbol string) model.FeatureRow {
	return model.FeatureRow{
		Symbol:        symbol,
		Close:         13,
		EMAFast:       model.Float(12),
		EMASlow:       model.Float(10),
		VWAP:          model.Float(12),
		VolumeSpike:   model.Float(3),
		Consolidation: model.Float(0.01),
	}
}

func weakRow(symbol string) model.FeatureRow {
	return model.FeatureRow{Symbol: symbol, Close: 10}
}

func TestVetoYieldsZeroScoreAndIsAudited(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg, SoftVeto: true, TopK: 1}, nil)
	snap := model.Snapshot{"AAPL": strongRow("AAPL"), "MSFT": strongRow("MSFT")}
	sent := map[string]model.SentimentResult{
		"AAPL": {Symbol: "AAPL", Score: -0.9, Gate: model.GateVeto, Reasons: []string{"strong negative sentiment"}},
	}
	audit := &auditRecorder{}

	all, top := engine.Rank(context.Background(), snap, sent, audit)

	require.Len(t, all, 2)
	require.Len(t, top, 1)
	assert.Equal(t, "MSFT", top[0].Symbol)

	veto := all[1]
	assert.Equal(t, "AAPL", veto.Symbol)
	assert.Equal(t, 0.0, veto.Score)
	assert.Equal(t, model.DecisionSkipAIVeto, veto.Decision)
	assert.Equal(t, model.GateVeto, veto.Gate)
	assert.Equal(t, []string{"AI veto"}, veto.Reasons)
	assert.Equal(t, 100.0, veto.BaseScore)

	assert.Equal(t, 1, audit.calls)
	assert.Len(t, audit.signals, 2)
}

func TestVetoedSignalsDoNotTakeTopSlots(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg, SoftVeto: true, TopK: 2}, nil)
	below := weakRow("ZZZ")
	below.VWAP = model.Float(12)
	snap := model.Snapshot{"AAPL": strongRow("AAPL"), "MSFT": strongRow("MSFT"), "ZZZ": below}
	sent := map[string]model.SentimentResult{
		"AAPL": {Symbol: "AAPL", Score: -0.9, Gate: model.GateVeto},
	}
	audit := &auditRecorder{}

	all, top := engine.Rank(context.Background(), snap, sent, audit)

	// AAPL ties ZZZ at 0 and sorts first on symbol
	require.Len(t, all, 3)
	assert.Equal(t, []string{"MSFT", "AAPL", "ZZZ"}, []string{all[0].Symbol, all[1].Symbol, all[2].Symbol})
	require.Len(t, top, 2)
	assert.Equal(t, "MSFT", top[0].Symbol)
	assert.Equal(t, "ZZZ", top[1].Symbol)
	assert.Equal(t, model.DecisionObserve, top[1].Decision)
	assert.Len(t, audit.signals, 3)
}

func TestScoreGateIsAppliedFromScore(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg, SoftVeto: true}, nil)
	// Gate left as PASS by the producer; policy still vetoes on the score.
	sig := engine.Score(strongRow("TSLA"), model.SentimentResult{Symbol: "TSLA", Score: -0.75, Gate: model.GatePass})
	assert.Equal(t, model.DecisionSkipAIVeto, sig.Decision)

	sig = engine.Score(strongRow("TSLA"), model.SentimentResult{Symbol: "TSLA", Score: -0.5, Gate: model.GatePass, Reasons: []string{"soft negative sentiment"}})
	assert.Equal(t, model.GateSoftVeto, sig.Gate)
	assert.Equal(t, model.DecisionEnterLong, sig.Decision)
	assert.InDelta(t, 100-15, sig.Score, 1e-9)
}

func TestScoreCombinesComponents(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg}, nil)
	row := strongRow("NVDA")
	row.ContextBias = 0.5
	sig := engine.Score(row, model.SentimentResult{Symbol: "NVDA", Score: 0.5, Gate: model.GatePass, Reasons: []string{"neutral or positive"}})

	assert.Equal(t, 100.0, sig.BaseScore)
	assert.InDelta(t, 15.0, sig.AIAdjustment, 1e-9)
	assert.InDelta(t, 5.0, sig.ContextBias, 1e-9)
	assert.InDelta(t, 120.0, sig.Score, 1e-9)
	assert.Equal(t, []string{"EMA fast above slow", "Price above VWAP", "Volume spike", "Range expansion ok", "neutral or positive"}, sig.Reasons)
}

func TestScoreFloorsAtZeroAndObserves(t *testing.T) {
	engine := NewEngine(Config{Rules: rules.Config{VWAPEnforce: true, VolSpikeMult: 2, ConsThreshold: 0.05}, SoftVeto: false}, nil)
	row := weakRow("AMD")
	row.VWAP = model.Float(11) // below vwap, all rules fail
	sig := engine.Score(row, model.SentimentResult{Symbol: "AMD", Score: -0.6, Gate: model.GatePass})
	assert.Equal(t, 0.0, sig.Score)
	assert.Equal(t, model.DecisionObserve, sig.Decision)
	assert.Equal(t, model.GatePass, sig.Gate)
}

func TestMissingSentimentIsNeutral(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg}, nil)
	all, _ := engine.Rank(context.Background(), model.Snapshot{"META": strongRow("META")}, nil, nil)
	require.Len(t, all, 1)
	assert.Equal(t, model.GatePass, all[0].Gate)
	assert.Equal(t, "no news", all[0].Reasons[len(all[0].Reasons)-1])
	assert.Zero(t, all[0].AIAdjustment)
}

func TestTiesBreakBySymbolAscending(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg, TopK: 2}, nil)
	snap := model.Snapshot{"ZZZ": strongRow("ZZZ"), "AAA": strongRow("AAA"), "MMM": strongRow("MMM"), "LOW": weakRow("LOW")}
	all, top := engine.Rank(context.Background(), snap, nil, nil)

	var order []string
	for _, s := range all {
		order = append(order, s.Symbol)
	}
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ", "LOW"}, order)
	assert.Equal(t, []string{"AAA", "MMM"}, []string{top[0].Symbol, top[1].Symbol})
}

func TestTopKZeroMeansNoLimit(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg}, nil)
	snap := model.Snapshot{"A": strongRow("A"), "B": strongRow("B"), "C": strongRow("C")}
	all, top := engine.Rank(context.Background(), snap, nil, nil)
	assert.Len(t, all, 3)
	assert.Len(t, top, 3)
}

func TestRegimeMultiplierScalesScores(t *testing.T) {
	engine := NewEngine(Config{Rules: ruleCfg, RegimeMultiplier: 0.5}, nil)
	sig := engine.Score(strongRow("IBM"), model.NeutralSentiment("IBM"))
	assert.InDelta(t, 50.0, sig.Score, 1e-9)
}

func TestAuditErrorIsLoggedNotReturned(t *testing.T) {
	log, hook := test.NewNullLogger()
	engine := NewEngine(Config{Rules: ruleCfg}, logrus.NewEntry(log))
	all, top := engine.Rank(context.Background(), model.Snapshot{"X": strongRow("X")}, nil, &auditRecorder{err: errors.New("locked")})
	assert.Len(t, all, 1)
	assert.Len(t, top, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
