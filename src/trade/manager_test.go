package trade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intradaybot/src/model"
)

type memStore struct {
	orders    []model.Order
	fills     []model.Fill
	positions map[string]model.Position
	journal   map[string]model.TradeJournalEntry
	upserts   int
	deletes   int
	closes    int
	scaleOuts int
	stats     DayStats
	failWith  error
}

func newMemStore() *memStore {
	return &memStore{positions: map[string]model.Position{}, journal: map[string]model.TradeJournalEntry{}}
}

func (s *memStore) writes() int {
	return len(s.orders) + len(s.fills) + s.upserts + s.deletes + len(s.journal) + s.closes + s.scaleOuts
}

func (s *memStore) RecordOrder(_ context.Context, o model.Order, f *model.Fill) error {
	s.orders = append(s.orders, o)
	if f != nil {
		s.fills = append(s.fills, *f)
	}
	return s.failWith
}

func (s *memStore) UpsertPosition(_ context.Context, p model.Position) error {
	s.upserts++
	s.positions[p.Symbol] = p
	return s.failWith
}

func (s *memStore) DeletePosition(_ context.Context, symbol string) error {
	s.deletes++
	delete(s.positions, symbol)
	return s.failWith
}

func (s *memStore) ListPositions(context.Context) ([]model.Position, error) {
	var out []model.Position
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, s.failWith
}

func (s *memStore) OpenTrade(_ context.Context, e model.TradeJournalEntry) error {
	s.journal[e.TradeID] = e
	return s.failWith
}

func (s *memStore) ScaleOutTrade(_ context.Context, tradeID string, pnl float64) error {
	s.scaleOuts++
	e := s.journal[tradeID]
	e.ScaleOutPnl += pnl
	s.journal[tradeID] = e
	return s.failWith
}

func (s *memStore) CloseTrade(_ context.Context, c TradeClose) error {
	s.closes++
	e := s.journal[c.TradeID]
	e.CloseTs = &c.CloseTs
	e.ExitPrice = &c.ExitPrice
	e.Pnl = &c.Pnl
	e.ReasonClose = &c.Reason
	s.journal[c.TradeID] = e
	return s.failWith
}

func (s *memStore) DayStats(context.Context, string) (DayStats, error) {
	return s.stats, nil
}

// fakeGateway fills at the reference price unless told otherwise.
type fakeGateway struct {
	calls  []string
	status map[string]OrderStatus
	err    error
}

func (g *fakeGateway) SubmitOrder(_ context.Context, symbol string, side Side, qty, ref float64) (OrderResult, error) {
	g.calls = append(g.calls, fmt.Sprintf("%s %s %v", side, symbol, qty))
	if g.err != nil {
		return OrderResult{}, g.err
	}
	if st, ok := g.status[symbol+string(side)]; ok {
		return OrderResult{Status: st}, nil
	}
	return OrderResult{Status: StatusFilled, AvgFillPrice: ref}, nil
}

var lifecycleCfg = Config{Equity: 100000, RiskPct: 1, ATRMult: 1.5, Scale1Pct: 4, TargetPct: 8}

func newTestManager(cfg Config) (*Manager, *memStore, *fakeGateway, *test.Hook) {
	log, hook := test.NewNullLogger()
	store := newMemStore()
	gw := &fakeGateway{status: map[string]OrderStatus{}}
	m := NewManager(cfg, NewBook(), gw, store, logrus.NewEntry(log))
	m.now = func() time.Time { return time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC) }
	n := 0
	m.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return m, store, gw, hook
}

func enterSignal(symbol string) model.RankedSignal {
	return model.RankedSignal{
		Symbol:   symbol,
		Score:    100,
		Decision: model.DecisionEnterLong,
		Gate:     model.GatePass,
		Reasons:  []string{"EMA fast above slow", "Price above VWAP", "Volume spike", "Range expansion ok"},
	}
}

func row(symbol string, price float64, emaSlow *float64) model.FeatureRow {
	return model.FeatureRow{Symbol: symbol, Close: price, ATR: model.Float(1.0), EMASlow: emaSlow}
}

func snap(rows ...model.FeatureRow) model.Snapshot {
	s := model.Snapshot{}
	for _, r := range rows {
		s[r.Symbol] = r
	}
	return s
}

func TestLifecycleEntryScaleTargetThenNoop(t *testing.T) {
	ctx := context.Background()
	m, store, _, _ := newTestManager(lifecycleCfg)

	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("AAPL")}, snap(row("AAPL", 100, nil)), "2025-03-04")
	require.Len(t, ids, 1)

	pos, ok := m.Book().Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 98.5, pos.StopPrice)
	assert.Equal(t, 667.0, pos.Qty)
	assert.Equal(t, 104.0, pos.ScaleTarget)
	assert.Equal(t, 108.0, pos.FinalTarget)
	assert.False(t, pos.Scaled)
	require.Len(t, store.orders, 1)
	require.Len(t, store.fills, 1)
	assert.Equal(t, model.OrderStatusFilled, store.orders[0].Status)
	assert.Equal(t, "EMA fast above slow;Price above VWAP;Volume spike", store.journal[ids[0]].ReasonOpen)
	assert.Contains(t, store.positions, "AAPL")

	m.ManageOpenPositions(ctx, snap(row("AAPL", 104, model.Float(101))))
	pos, _ = m.Book().Get("AAPL")
	assert.True(t, pos.Scaled)
	assert.Equal(t, 333.5, pos.Qty)
	assert.Equal(t, 101.0, pos.StopPrice)
	assert.True(t, store.positions["AAPL"].Scaled)
	assert.InDelta(t, 4*333.5, store.journal[ids[0]].ScaleOutPnl, 1e-9)

	m.ManageOpenPositions(ctx, snap(row("AAPL", 108, model.Float(102))))
	assert.False(t, m.Book().Has("AAPL"))
	assert.NotContains(t, store.positions, "AAPL")

	entry := store.journal[ids[0]]
	require.True(t, entry.Closed())
	assert.Equal(t, ReasonTarget, *entry.ReasonClose)
	assert.Greater(t, *entry.Pnl, 0.0)
	assert.InDelta(t, 8*333.5, *entry.Pnl, 1e-9)

	before := store.writes()
	m.ManageOpenPositions(ctx, snap(row("AAPL", 110, model.Float(103))))
	assert.Equal(t, before, store.writes())
	assert.False(t, m.Book().Has("AAPL"))
}

func TestStopHitCloses(t *testing.T) {
	ctx := context.Background()
	m, store, _, _ := newTestManager(lifecycleCfg)
	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("TSLA")}, snap(row("TSLA", 100, nil)), "2025-03-04")
	require.Len(t, ids, 1)

	m.ManageOpenPositions(ctx, snap(row("TSLA", 98.5, model.Float(99))))
	assert.False(t, m.Book().Has("TSLA"))
	entry := store.journal[ids[0]]
	assert.Equal(t, ReasonStop, *entry.ReasonClose)
	assert.Less(t, *entry.Pnl, 0.0)
}

func TestManageIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("MSFT")}, snap(row("MSFT", 100, nil)), "2025-03-04")

	prices := snap(row("MSFT", 101, model.Float(99)))
	m.ManageOpenPositions(ctx, prices)
	pos, _ := m.Book().Get("MSFT")
	assert.Equal(t, 99.0, pos.StopPrice)

	writes, calls := store.writes(), len(gw.calls)
	m.ManageOpenPositions(ctx, prices)
	assert.Equal(t, writes, store.writes())
	assert.Equal(t, calls, len(gw.calls))
	after, _ := m.Book().Get("MSFT")
	assert.Equal(t, pos, after)
}

func TestTrailNeverLowersStop(t *testing.T) {
	ctx := context.Background()
	m, store, _, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("AMD")}, snap(row("AMD", 100, nil)), "2025-03-04")
	upserts := store.upserts

	m.ManageOpenPositions(ctx, snap(row("AMD", 100.5, model.Float(97))))
	pos, _ := m.Book().Get("AMD")
	assert.Equal(t, 98.5, pos.StopPrice)
	assert.Equal(t, upserts, store.upserts)
}

func TestMissingEMASlowTrailsAtPrice(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("AMD")}, snap(row("AMD", 100, nil)), "2025-03-04")

	m.ManageOpenPositions(ctx, snap(row("AMD", 102, nil)))
	pos, _ := m.Book().Get("AMD")
	assert.Equal(t, 102.0, pos.StopPrice)
}

func TestExecuteSkipsNonEntries(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)

	veto := enterSignal("AAA")
	veto.Gate = model.GateVeto
	observe := enterSignal("BBB")
	observe.Decision = model.DecisionObserve
	noRow := enterSignal("CCC")

	ids := m.Execute(ctx, []model.RankedSignal{veto, observe, noRow}, snap(row("AAA", 10, nil), row("BBB", 10, nil)), "2025-03-04")
	assert.Empty(t, ids)
	assert.Empty(t, gw.calls)
	assert.Zero(t, store.writes())
}

func TestExecuteNeverReentersOpenSymbol(t *testing.T) {
	ctx := context.Background()
	m, _, gw, _ := newTestManager(lifecycleCfg)
	s := snap(row("NVDA", 100, nil))

	require.Len(t, m.Execute(ctx, []model.RankedSignal{enterSignal("NVDA")}, s, "2025-03-04"), 1)
	assert.Empty(t, m.Execute(ctx, []model.RankedSignal{enterSignal("NVDA")}, s, "2025-03-04"))
	assert.Len(t, gw.calls, 1)
	assert.Equal(t, 1, m.Book().Len())
}

func TestRejectedEntryLeavesSymbolFlat(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)
	gw.status["IBM"+string(SideBuy)] = StatusRejected

	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("IBM")}, snap(row("IBM", 100, nil)), "2025-03-04")
	assert.Empty(t, ids)
	assert.False(t, m.Book().Has("IBM"))
	require.Len(t, store.orders, 1)
	assert.Equal(t, model.OrderStatusRejected, store.orders[0].Status)
	assert.Empty(t, store.fills)
	assert.Empty(t, store.positions)
	assert.Empty(t, store.journal)

	delete(gw.status, "IBM"+string(SideBuy))
	assert.Len(t, m.Execute(ctx, []model.RankedSignal{enterSignal("IBM")}, snap(row("IBM", 100, nil)), "2025-03-04"), 1)
}

func TestGatewayErrorIsLoggedAndSkipped(t *testing.T) {
	ctx := context.Background()
	m, _, gw, hook := newTestManager(lifecycleCfg)
	gw.err = errors.New("connection reset")

	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("ORCL")}, snap(row("ORCL", 100, nil)), "2025-03-04")
	assert.Empty(t, ids)
	assert.False(t, m.Book().Has("ORCL"))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "order gateway failed, skipping" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestScaleOutNotFilledLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("META")}, snap(row("META", 100, nil)), "2025-03-04")
	before, _ := m.Book().Get("META")
	upserts := store.upserts

	gw.status["META"+string(SideSell)] = StatusRejected
	m.ManageOpenPositions(ctx, snap(row("META", 105, model.Float(101))))

	after, _ := m.Book().Get("META")
	assert.Equal(t, before, after)
	assert.Equal(t, upserts, store.upserts)
	assert.Zero(t, store.scaleOuts)
}

func TestCloseNotFilledRemainsOpen(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("GOOG")}, snap(row("GOOG", 100, nil)), "2025-03-04")
	gw.status["GOOG"+string(SideSell)] = StatusRejected

	assert.False(t, m.Close(ctx, "GOOG", 90, ReasonStop))
	assert.True(t, m.Book().Has("GOOG"))
	assert.Contains(t, store.positions, "GOOG")
	assert.Zero(t, store.closes)
}

func TestCloseUntrackedIsNoop(t *testing.T) {
	m, store, gw, _ := newTestManager(lifecycleCfg)
	assert.False(t, m.Close(context.Background(), "NOPE", 10, ReasonFlatten))
	assert.Empty(t, gw.calls)
	assert.Zero(t, store.writes())
}

func TestFlattenAllClosesEverySymbolOnce(t *testing.T) {
	ctx := context.Background()
	m, store, gw, _ := newTestManager(lifecycleCfg)
	s := snap(row("A", 100, nil), row("B", 50, nil), row("C", 20, nil))
	signals := []model.RankedSignal{enterSignal("A"), enterSignal("B"), enterSignal("C")}
	require.Len(t, m.Execute(ctx, signals, s, "2025-03-04"), 3)
	gw.calls = nil

	latest := snap(row("A", 101, nil), row("B", 51, nil), row("C", 19, nil))
	assert.Equal(t, 3, m.FlattenAll(ctx, latest))
	assert.Zero(t, m.Book().Len())
	assert.Empty(t, store.positions)
	assert.Equal(t, []string{"SELL A 667", "SELL B 667", "SELL C 667"}, gw.calls)

	for _, e := range store.journal {
		require.True(t, e.Closed())
		assert.Equal(t, ReasonFlatten, *e.ReasonClose)
	}
	assert.Equal(t, 3, store.closes)
	assert.Zero(t, m.FlattenAll(ctx, latest))
}

func TestFlattenSkipsSymbolsWithoutRow(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("A"), enterSignal("B")}, snap(row("A", 100, nil), row("B", 100, nil)), "2025-03-04")

	assert.Equal(t, 1, m.FlattenAll(ctx, snap(row("A", 100, nil))))
	assert.Equal(t, []string{"B"}, m.Book().Symbols())
}

func TestMaxTradesPerDay(t *testing.T) {
	ctx := context.Background()
	cfg := lifecycleCfg
	cfg.MaxTradesPerDay = 2
	m, _, _, _ := newTestManager(cfg)
	s := snap(row("A", 100, nil), row("B", 100, nil), row("C", 100, nil))
	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("A"), enterSignal("B"), enterSignal("C")}, s, "2025-03-04")
	assert.Len(t, ids, 2)
	assert.False(t, m.Book().Has("C"))

	// a new run date resets the counter
	m.FlattenAll(ctx, s)
	assert.Len(t, m.Execute(ctx, []model.RankedSignal{enterSignal("C")}, s, "2025-03-05"), 1)
}

func TestDailyDrawdownHalt(t *testing.T) {
	ctx := context.Background()
	cfg := lifecycleCfg
	cfg.DailyDrawdownHaltPct = 4
	m, store, _, _ := newTestManager(cfg)
	store.stats = DayStats{Entries: 1, RealizedPnl: -4000}

	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("A")}, snap(row("A", 100, nil)), "2025-03-04")
	assert.Empty(t, ids)
	day, stats := m.Stats()
	assert.Equal(t, "2025-03-04", day)
	assert.Equal(t, -4000.0, stats.RealizedPnl)
}

func TestRestoreRebuildsBook(t *testing.T) {
	ctx := context.Background()
	m, store, _, _ := newTestManager(lifecycleCfg)
	m.Execute(ctx, []model.RankedSignal{enterSignal("A")}, snap(row("A", 100, nil)), "2025-03-04")
	want, _ := m.Book().Get("A")

	restarted := NewManager(lifecycleCfg, NewBook(), &fakeGateway{}, store, nil)
	require.NoError(t, restarted.Restore(ctx))
	got, ok := restarted.Book().Get("A")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPersistenceErrorsDoNotRollBack(t *testing.T) {
	ctx := context.Background()
	m, store, _, hook := newTestManager(lifecycleCfg)
	store.failWith = errors.New("disk full")
	rep := &captureRecorder{}
	m.SetReporter(rep)

	ids := m.Execute(ctx, []model.RankedSignal{enterSignal("A")}, snap(row("A", 100, nil)), "2025-03-04")
	assert.Len(t, ids, 1)
	assert.True(t, m.Book().Has("A"))
	assert.NotEmpty(t, rep.methods)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

type captureRecorder struct{ methods []string }

func (c *captureRecorder) Capture(_ context.Context, _, method, _ string, _ error, _ map[string]interface{}) {
	c.methods = append(c.methods, method)
}

func TestObserverIsNotified(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(lifecycleCfg)
	obs := &observerRecorder{}
	m.SetObserver(obs)

	m.Execute(ctx, []model.RankedSignal{enterSignal("A")}, snap(row("A", 100, nil)), "2025-03-04")
	m.ManageOpenPositions(ctx, snap(row("A", 104, nil)))
	m.ManageOpenPositions(ctx, snap(row("A", 108, nil)))
	assert.Equal(t, []string{"submit BUY FILLED", "open A", "submit SELL FILLED", "scale A", "submit SELL FILLED", "close A target hit"}, obs.events)
}

type observerRecorder struct{ events []string }

func (o *observerRecorder) OrderSubmitted(side Side, status OrderStatus) {
	o.events = append(o.events, fmt.Sprintf("submit %s %s", side, status))
}
func (o *observerRecorder) PositionOpened(symbol string) { o.events = append(o.events, "open "+symbol) }
func (o *observerRecorder) PositionScaled(symbol string) { o.events = append(o.events, "scale "+symbol) }
func (o *observerRecorder) PositionClosed(symbol, reason string, _ float64) {
	o.events = append(o.events, "close "+symbol+" "+reason)
}
