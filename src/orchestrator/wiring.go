package orchestrator

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"intradaybot/src/connectors"
	"intradaybot/src/metrics"
	"intradaybot/src/repository"
	"intradaybot/src/risk"
	"intradaybot/src/scoring"
	"intradaybot/src/sentiment"
	"intradaybot/src/sentiment/onnx"
	"intradaybot/src/settings"
	"intradaybot/src/trade"
	"intradaybot/src/watchlist"
)

// NewFromSettings wires the production collaborators on db. reg may be nil.
func NewFromSettings(s settings.AppSettings, db *gorm.DB, reg *metrics.Registry, log *logger.Entry) (*Orchestrator, error) {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	cc := connectors.GetConfig()

	clock, err := risk.NewClock(s.FlattenET)
	if err != nil {
		return nil, fmt.Errorf("market clock: %w", err)
	}

	var gateway trade.Gateway = connectors.RejectingGateway{}
	if s.Simulation {
		gateway = connectors.NewSimGateway(cc.SlippagePct, log)
	} else {
		log.Warn("SIMULATION=false: no live broker is configured, every order will be rejected")
	}

	exceptions := repository.NewExceptionRepositoryWithDB(db)
	manager := trade.NewManager(s.TradeConfig(), trade.NewBook(), gateway, repository.NewTradeStoreWithDB(db), log)
	manager.SetReporter(exceptions)
	if reg != nil {
		manager.SetObserver(reg)
	}

	var (
		scorer  sentiment.Scorer = sentiment.NewLexiconScorer()
		closers []func()
	)
	if s.AIModel == settings.AIModelONNX {
		modelScorer, err := onnx.NewModelScorer(onnx.GetConfig())
		if err != nil {
			log.WithError(err).Warn("onnx scorer unavailable, using lexicon")
		} else {
			scorer = modelScorer
			closers = append(closers, modelScorer.Close)
		}
	}
	analyzer := sentiment.NewAnalyzer(s.SentimentConfig(), scorer, repository.NewProvenanceRepositoryWithDB(db), log)

	var feeds []connectors.NewsFeed
	if cc.FinnhubToken != "" {
		feeds = append(feeds, connectors.NewFinnhubClient(cc, log))
	}
	if cc.YahooRSSEnabled {
		feeds = append(feeds, connectors.NewSimHeadlineFeed())
	}

	notifier, err := connectors.NewNotifier(s.Notifier, cc, log)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	cfg := Config{
		Features:          s.FeatureConfig(),
		FreshHours:        s.CatalystFreshHours,
		Location:          s.Location(),
		Interval5m:        s.Interval5m,
		Interval15m:       s.Interval15m,
		FlattenCheckEvery: s.FlattenCheckEvery,
	}
	deps := Deps{
		Loader:     watchlist.NewLoader(s.WatchlistConfig(), repository.NewWatchlistRepositoryWithDB(db), log),
		Bars:       connectors.NewSimBarFeed(),
		News:       feeds,
		Analyzer:   analyzer,
		Engine:     scoring.NewEngine(s.ScoringConfig(), log),
		Manager:    manager,
		Clock:      clock,
		Notifier:   notifier,
		Metrics:    reg,
		BarRepo:    repository.NewBarRepositoryWithDB(db),
		Catalysts:  repository.NewCatalystRepositoryWithDB(db),
		Signals:    repository.NewSignalRepositoryWithDB(db),
		Cycles:     repository.NewCycleRunRepositoryWithDB(db),
		Exceptions: exceptions,
	}
	o, err := New(cfg, deps, log)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	o.closers = closers
	return o, nil
}
