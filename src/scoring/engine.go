package scoring

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/rules"
	"intradaybot/src/sentiment"
)

const (
	aiWeight      = 30.0
	contextWeight = 10.0
)

// AuditSink receives every evaluated signal, vetoed ones included, before the
// list is truncated.
type AuditSink interface {
	RecordSignals(ctx context.Context, signals []model.RankedSignal) error
}

type Config struct {
	Rules    rules.Config
	SoftVeto bool
	TopK     int
	// RegimeMultiplier scales final scores before sorting. Zero means 1.
	RegimeMultiplier float64
}

type Engine struct {
	cfg    Config
	logger *logrus.Entry
}

func NewEngine(cfg Config, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.RegimeMultiplier == 0 {
		cfg.RegimeMultiplier = 1
	}
	return &Engine{cfg: cfg, logger: logger.WithField("component", "scoring")}
}

// Rank scores every row of the snapshot. all is sorted and complete; top is
// the first TopK entries that were not vetoed (no limit when TopK <= 0).
func (e *Engine) Rank(ctx context.Context, snapshot model.Snapshot, sent map[string]model.SentimentResult, audit AuditSink) (all, top []model.RankedSignal) {
	all = make([]model.RankedSignal, 0, len(snapshot))
	for _, symbol := range snapshot.Symbols() {
		res, ok := sent[symbol]
		if !ok {
			res = model.NeutralSentiment(symbol)
		}
		all = append(all, e.Score(snapshot[symbol], res))
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Symbol < all[j].Symbol
	})

	if audit != nil && len(all) > 0 {
		if err := audit.RecordSignals(ctx, all); err != nil {
			e.logger.WithError(err).Error("failed to record signal audit")
		}
	}

	top = make([]model.RankedSignal, 0, len(all))
	for _, sig := range all {
		if sig.Decision != model.DecisionSkipAIVeto {
			top = append(top, sig)
		}
	}
	if e.cfg.TopK > 0 && len(top) > e.cfg.TopK {
		top = top[:e.cfg.TopK]
	}
	return all, top
}

// Score builds the signal for one row.
func (e *Engine) Score(row model.FeatureRow, res model.SentimentResult) model.RankedSignal {
	ev := rules.Evaluate(row, e.cfg.Rules)
	base := ev.BaseScore()
	aiAdj := sentiment.Clamp(res.Score, -1, 1) * aiWeight
	ctxBias := row.ContextBias * contextWeight

	gate, _ := sentiment.Gate(res.Score, e.cfg.SoftVeto)
	if res.Gate == model.GateVeto {
		gate = model.GateVeto
	}
	if gate == model.GateVeto {
		return model.RankedSignal{
			Symbol:       row.Symbol,
			BaseScore:    base,
			AIAdjustment: aiAdj,
			ContextBias:  ctxBias,
			Score:        0,
			Decision:     model.DecisionSkipAIVeto,
			Gate:         model.GateVeto,
			Reasons:      []string{"AI veto"},
		}
	}

	final := base + aiAdj + ctxBias
	if final < 0 {
		final = 0
	}
	final *= e.cfg.RegimeMultiplier

	decision := model.DecisionObserve
	if final > 0 {
		decision = model.DecisionEnterLong
	}
	reasons := append(ev.Reasons(), res.Reasons...)
	return model.RankedSignal{
		Symbol:       row.Symbol,
		BaseScore:    base,
		AIAdjustment: aiAdj,
		ContextBias:  ctxBias,
		Score:        final,
		Decision:     decision,
		Gate:         gate,
		Reasons:      reasons,
	}
}
