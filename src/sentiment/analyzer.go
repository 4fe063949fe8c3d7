package sentiment

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/utils"
)

// ProvenanceSink stores one provenance row per scored symbol.
type ProvenanceSink interface {
	SaveProvenance(ctx context.Context, rows []model.AIProvenance) error
}

type Config struct {
	Enabled  bool
	SoftVeto bool
}

// Analyzer groups fresh news by symbol and runs the configured scorer.
type Analyzer struct {
	cfg      Config
	scorer   Scorer
	fallback Scorer
	sink     ProvenanceSink
	logger   *logrus.Entry
	now      func() time.Time
}

func NewAnalyzer(cfg Config, scorer Scorer, sink ProvenanceSink, logger *logrus.Entry) *Analyzer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	fallback := NewLexiconScorer()
	if scorer == nil {
		scorer = fallback
	}
	return &Analyzer{
		cfg:      cfg,
		scorer:   scorer,
		fallback: fallback,
		sink:     sink,
		logger:   logger.WithField("component", "sentiment"),
		now:      time.Now,
	}
}

func (a *Analyzer) ScorerName() string {
	return a.scorer.Name()
}

// Analyze returns one result per symbol that has at least one fresh item.
func (a *Analyzer) Analyze(ctx context.Context, items []model.NewsItem) map[string]model.SentimentResult {
	grouped := make(map[string][]string)
	for _, item := range items {
		if !item.Fresh {
			continue
		}
		grouped[item.Symbol] = append(grouped[item.Symbol], item.Title)
	}

	symbols := make([]string, 0, len(grouped))
	for s := range grouped {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	results := make(map[string]model.SentimentResult, len(grouped))
	var provenance []model.AIProvenance
	for _, symbol := range symbols {
		if !a.cfg.Enabled {
			results[symbol] = model.SentimentResult{Symbol: symbol, Gate: model.GatePass, Reasons: []string{"disabled"}}
			continue
		}

		headlines := nonEmpty(grouped[symbol])
		scorerName := a.scorer.Name()
		score, err := a.scorer.Score(ctx, headlines)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"symbol": symbol,
				"scorer": scorerName,
			}).Warn("scorer failed, falling back to lexicon")
			scorerName = a.fallback.Name()
			score, _ = a.fallback.Score(ctx, headlines)
		}
		score = Clamp(score, -1, 1)

		gate, reason := Gate(score, a.cfg.SoftVeto)
		res := model.SentimentResult{Symbol: symbol, Score: score, Gate: gate, Reasons: []string{reason}}
		results[symbol] = res
		provenance = append(provenance, a.provenance(res, scorerName, headlines))
	}

	if len(provenance) > 0 && a.sink != nil {
		if err := a.sink.SaveProvenance(ctx, provenance); err != nil {
			a.logger.WithError(err).Error("failed to save ai provenance")
		}
	}
	return results
}

func (a *Analyzer) provenance(res model.SentimentResult, modelName string, headlines []string) model.AIProvenance {
	inputs, _ := json.Marshal(map[string]interface{}{"headlines": headlines})
	outputs, _ := json.Marshal(map[string]interface{}{"score": res.Score, "gate": res.Gate, "reasons": res.Reasons})
	return model.AIProvenance{
		Symbol:       res.Symbol,
		Ts:           utils.ToISO(a.now().Unix()),
		ModelName:    modelName,
		InputsJSON:   string(inputs),
		OutputsJSON:  string(outputs),
		DeltaApplied: res.Score,
		Notes:        "sentiment",
	}
}

func nonEmpty(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
