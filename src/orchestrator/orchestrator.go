// Package orchestrator runs the per-timeframe cycle: bars, features, news,
// sentiment, ranking and the trade lifecycle.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"intradaybot/src/connectors"
	"intradaybot/src/features"
	"intradaybot/src/metrics"
	"intradaybot/src/model"
	"intradaybot/src/repository"
	"intradaybot/src/risk"
	"intradaybot/src/scoring"
	"intradaybot/src/sentiment"
	"intradaybot/src/trade"
	"intradaybot/src/utils"
	"intradaybot/src/watchlist"
)

const barSource = "sim"

type Config struct {
	Features          features.Config
	FreshHours        int
	Location          *time.Location
	Interval5m        time.Duration
	Interval15m       time.Duration
	FlattenCheckEvery time.Duration
}

// Deps are the collaborators of one orchestrator. Metrics and Notifier are
// optional.
type Deps struct {
	Loader     *watchlist.Loader
	Bars       connectors.BarFeed
	News       []connectors.NewsFeed
	Analyzer   *sentiment.Analyzer
	Engine     *scoring.Engine
	Manager    *trade.Manager
	Clock      *risk.Clock
	Notifier   connectors.Notifier
	Metrics    *metrics.Registry
	BarRepo    *repository.BarRepository
	Catalysts  *repository.CatalystRepository
	Signals    *repository.SignalRepository
	Cycles     *repository.CycleRunRepository
	Exceptions *repository.ExceptionRepository
}

// CycleResult summarises one completed cycle.
type CycleResult struct {
	CycleID     uint
	Timeframe   string
	RunDate     string
	Symbols     int
	Signals     []model.RankedSignal
	Top         []model.RankedSignal
	Opened      []string
	NewsErrored bool
}

type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logger.Entry
	now  func() time.Time

	// mu serializes every cycle and flatten sweep.
	mu    sync.Mutex
	focus *watchlist.FocusList

	sigMu  sync.RWMutex
	latest []model.RankedSignal

	closers []func()
}

func New(cfg Config, deps Deps, log *logger.Entry) (*Orchestrator, error) {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	switch {
	case deps.Loader == nil:
		return nil, errors.New("orchestrator: watchlist loader is required")
	case deps.Bars == nil:
		return nil, errors.New("orchestrator: bar feed is required")
	case deps.Analyzer == nil, deps.Engine == nil, deps.Manager == nil:
		return nil, errors.New("orchestrator: analyzer, engine and manager are required")
	case deps.Clock == nil:
		return nil, errors.New("orchestrator: clock is required")
	case deps.BarRepo == nil, deps.Catalysts == nil, deps.Signals == nil, deps.Cycles == nil:
		return nil, errors.New("orchestrator: repositories are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = connectors.NewLogNotifier(log)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		log:  log.WithField("component", "orchestrator"),
		now:  time.Now,
	}, nil
}

func (o *Orchestrator) Book() *trade.Book { return o.deps.Manager.Book() }

// Close releases scorer resources.
func (o *Orchestrator) Close() {
	for _, c := range o.closers {
		c()
	}
	o.closers = nil
}

// LatestSignals returns a copy of the ranked signals of the last cycle.
func (o *Orchestrator) LatestSignals() []model.RankedSignal {
	o.sigMu.RLock()
	defer o.sigMu.RUnlock()
	out := make([]model.RankedSignal, len(o.latest))
	copy(out, o.latest)
	return out
}

// Restore rebuilds the book from persisted positions.
func (o *Orchestrator) Restore(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deps.Manager.Restore(ctx)
}

// watchlist returns the focus list of runDate, loading it on first use.
func (o *Orchestrator) watchlist(ctx context.Context, runDate string) (*watchlist.FocusList, error) {
	if o.focus != nil && o.focus.RunDate == runDate {
		return o.focus, nil
	}
	focus, err := o.deps.Loader.Load(ctx, "")
	if err != nil {
		return nil, err
	}
	o.focus = focus
	return focus, nil
}

// RunCycle executes one full cycle for timeframe.
func (o *Orchestrator) RunCycle(ctx context.Context, timeframe string) (*CycleResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var timer *metrics.CycleTimer
	if o.deps.Metrics != nil {
		timer = o.deps.Metrics.StartCycle(timeframe)
	}

	now := o.now()
	runDate := utils.RunDate(now, o.cfg.Location)
	log := o.log.WithFields(logger.Fields{"timeframe": timeframe, "run_date": runDate})

	run := &model.CycleRun{
		RunDate:   runDate,
		Timeframe: timeframe,
		StartedTs: utils.ToISO(now.Unix()),
		Status:    model.CycleStatusOK,
	}
	if err := o.deps.Cycles.Start(ctx, run); err != nil {
		log.WithError(err).Error("failed to record cycle start")
	}

	res, timings, err := o.cycle(ctx, timeframe, runDate, run, log)

	run.FinishedTs = utils.ToISO(o.now().Unix())
	if payload, mErr := json.Marshal(timings); mErr == nil {
		run.TimingsJSON = string(payload)
	}
	status := model.CycleStatusOK
	if err != nil {
		status = model.CycleStatusError
		run.Status = status
		run.Error = err.Error()
		run.Errors++
		if o.deps.Exceptions != nil {
			o.deps.Exceptions.Capture(ctx, "orchestrator", "RunCycle", "error", err,
				map[string]interface{}{"timeframe": timeframe, "run_date": runDate})
		}
	}
	if run.ID != 0 {
		if fErr := o.deps.Cycles.Finish(ctx, run); fErr != nil {
			log.WithError(fErr).Error("failed to record cycle finish")
		}
	}
	if timer != nil {
		elapsed := timer.Stop(status)
		log = log.WithField("elapsed", elapsed.String())
	}
	if err != nil {
		log.WithError(err).Error("cycle failed")
		return nil, err
	}
	res.CycleID = run.ID
	log.WithFields(logger.Fields{
		"symbols": res.Symbols,
		"signals": len(res.Signals),
		"entries": len(res.Opened),
		"open":    o.deps.Manager.Book().Len(),
	}).Info("cycle complete")
	return res, nil
}

func (o *Orchestrator) cycle(ctx context.Context, timeframe, runDate string, run *model.CycleRun, log *logger.Entry) (*CycleResult, map[string]int64, error) {
	timings := make(map[string]int64)
	stage := func(name string, started time.Time) {
		timings[name] = time.Since(started).Milliseconds()
	}

	started := time.Now()
	focus, err := o.watchlist(ctx, runDate)
	if err != nil {
		return nil, timings, fmt.Errorf("load watchlist: %w", err)
	}
	stage("watchlist", started)
	run.Symbols = len(focus.Symbols)

	started = time.Now()
	bars, err := o.deps.Bars.CollectBars(ctx, focus.Symbols, timeframe)
	if err != nil {
		return nil, timings, fmt.Errorf("collect %s bars: %w", timeframe, err)
	}
	if err := o.deps.BarRepo.UpsertBars(ctx, bars, barSource, runDate); err != nil {
		log.WithError(err).Error("failed to persist bars")
		run.Errors++
	}
	stage("bars", started)

	started = time.Now()
	snapshot := features.BuildSnapshot(bars, focus.Context, o.cfg.Features)
	if err := o.deps.BarRepo.UpsertFeatures(ctx, snapshot, timeframe); err != nil {
		log.WithError(err).Error("failed to persist features")
		run.Errors++
	}
	stage("features", started)

	started = time.Now()
	sources := make([][]model.NewsItem, 0, len(o.deps.News))
	for _, feed := range o.deps.News {
		items, err := feed.Fetch(ctx, focus.Symbols)
		if err != nil {
			log.WithError(err).WithField("feed", feed.Name()).Warn("news feed failed")
			run.NewsErrored = true
			run.Errors++
			if o.deps.Metrics != nil {
				o.deps.Metrics.RecordNewsError()
			}
		}
		sources = append(sources, items)
	}
	news := connectors.MergeCatalysts(o.cfg.FreshHours, o.now(), sources...)
	if err := o.deps.Catalysts.Upsert(ctx, news, runDate); err != nil {
		log.WithError(err).Error("failed to persist catalysts")
		run.Errors++
	}
	stage("news", started)

	if err := ctx.Err(); err != nil {
		return nil, timings, err
	}

	started = time.Now()
	sent := o.deps.Analyzer.Analyze(ctx, news)
	audit := o.deps.Signals.Audit(timeframe, runDate, snapshot, focus.Ranks)
	all, top := o.deps.Engine.Rank(ctx, snapshot, sent, audit)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordSignals(all)
	}
	stage("scoring", started)
	run.Signals = len(all)

	o.sigMu.Lock()
	o.latest = all
	o.sigMu.Unlock()

	started = time.Now()
	opened := o.deps.Manager.Execute(ctx, top, snapshot, runDate)
	o.deps.Manager.ManageOpenPositions(ctx, snapshot)
	stage("trade", started)
	run.Entries = len(opened)

	if len(top) > 0 {
		best := top[0]
		msg := fmt.Sprintf("%s score %.1f", best.Symbol, best.Score)
		if err := o.deps.Notifier.Notify(ctx, "Top Candidate", msg); err != nil {
			log.WithError(err).Warn("notification failed")
		}
	}

	return &CycleResult{
		Timeframe:   timeframe,
		RunDate:     runDate,
		Symbols:     len(focus.Symbols),
		Signals:     all,
		Top:         top,
		Opened:      opened,
		NewsErrored: run.NewsErrored,
	}, timings, nil
}

// FlattenGuard closes every open position once the flatten deadline has
// passed. It returns the number of positions closed.
func (o *Orchestrator) FlattenGuard(ctx context.Context) (int, error) {
	if !o.deps.Clock.ShouldFlatten(o.now()) {
		return 0, nil
	}
	return o.Flatten(ctx)
}

// Flatten prices the open book from fresh 5m bars and closes everything.
func (o *Orchestrator) Flatten(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	book := o.deps.Manager.Book()
	symbols := book.Symbols()
	if len(symbols) == 0 {
		return 0, nil
	}
	bars, err := o.deps.Bars.CollectBars(ctx, symbols, model.Timeframe5m)
	if err != nil {
		return 0, fmt.Errorf("collect flatten bars: %w", err)
	}
	snapshot := features.BuildSnapshot(bars, nil, o.cfg.Features)
	closed := o.deps.Manager.FlattenAll(ctx, snapshot)
	o.log.WithFields(logger.Fields{"closed": closed, "remaining": book.Len()}).Info("flatten sweep")

	if closed > 0 {
		msg := fmt.Sprintf("closed %d position(s)", closed)
		if err := o.deps.Notifier.Notify(ctx, "Flatten", msg); err != nil {
			o.log.WithError(err).Warn("notification failed")
		}
	}
	return closed, nil
}
