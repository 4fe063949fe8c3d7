package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/risk"
	"intradaybot/src/tp_sl"
	"intradaybot/src/utils"
)

const (
	ReasonStop    = model.CloseReasonStop
	ReasonTarget  = model.CloseReasonTarget
	ReasonFlatten = "flatten"

	maxOpenReasons = 3
)

type Config struct {
	Equity    float64
	RiskPct   float64
	ATRMult   float64
	Scale1Pct float64
	TargetPct float64
	// MaxTradesPerDay caps entries per run date. Zero disables the cap.
	MaxTradesPerDay int
	// DailyDrawdownHaltPct halts entries once realized loss reaches this
	// share of equity. Zero disables the halt.
	DailyDrawdownHaltPct float64
}

// Manager drives every position through entry, scale, trail and exit. It is
// not safe for concurrent use; callers serialize invocations.
type Manager struct {
	cfg      Config
	book     *Book
	gateway  Gateway
	store    Store
	reporter ErrorReporter
	observer Observer
	logger   *logrus.Entry
	now      func() time.Time
	newID    func() string

	day   string
	stats DayStats
}

func NewManager(cfg Config, book *Book, gateway Gateway, store Store, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if book == nil {
		book = NewBook()
	}
	return &Manager{
		cfg:     cfg,
		book:    book,
		gateway: gateway,
		store:   store,
		logger:  logger.WithField("component", "trade_manager"),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (m *Manager) SetReporter(r ErrorReporter) { m.reporter = r }
func (m *Manager) SetObserver(o Observer)      { m.observer = o }
func (m *Manager) Book() *Book                 { return m.book }

// Restore rebuilds the book from the persisted mirror. Call once at startup.
func (m *Manager) Restore(ctx context.Context) error {
	rows, err := m.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	for _, row := range rows {
		if m.book.Has(row.Symbol) {
			continue
		}
		pos, err := FromRow(row)
		if err != nil {
			m.logger.WithError(err).WithField("symbol", row.Symbol).Warn("skipping unreadable position row")
			continue
		}
		m.book.put(pos)
	}
	m.logger.WithField("positions", m.book.Len()).Info("book restored")
	return nil
}

// Execute opens a position for every enter_long signal on a flat symbol and
// returns the ids of the trades it opened.
func (m *Manager) Execute(ctx context.Context, ranked []model.RankedSignal, snapshot model.Snapshot, runDate string) []string {
	m.rollDay(ctx, runDate)

	var opened []string
	for _, sig := range ranked {
		if sig.Decision != model.DecisionEnterLong || sig.Gate == model.GateVeto {
			continue
		}
		if m.book.Has(sig.Symbol) {
			continue
		}
		row, ok := snapshot[sig.Symbol]
		if !ok || row.Close <= 0 {
			continue
		}
		if halted, why := m.entriesHalted(); halted {
			m.logger.WithFields(logrus.Fields{"symbol": sig.Symbol, "day": m.day}).Info(why)
			break
		}
		if id, ok := m.enter(ctx, sig, row, runDate); ok {
			opened = append(opened, id)
		}
	}
	return opened
}

func (m *Manager) enter(ctx context.Context, sig model.RankedSignal, row model.FeatureRow, runDate string) (string, bool) {
	log := m.logger.WithField("symbol", sig.Symbol)
	price := row.Close
	stop := risk.EntryStop(price, risk.ATROrDefault(row.ATR, price), m.cfg.ATRMult)
	qty := risk.PositionSize(m.cfg.Equity, m.cfg.RiskPct, price, stop)
	if qty <= 0 {
		return "", false
	}

	res, ok := m.submit(ctx, sig.Symbol, SideBuy, qty, price)
	ts := m.now().Unix()
	order := m.newOrder(sig.Symbol, model.OrderSideBuy, qty, ts, res, map[string]interface{}{
		"reasons":  head(sig.Reasons, maxOpenReasons),
		"run_date": runDate,
	})
	order.StopPrice = &stop
	if !ok {
		m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, nil), sig.Symbol)
		return "", false
	}

	fill := res.AvgFillPrice
	m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, newFill(order, ts, qty, fill)), sig.Symbol)

	scale, final := tp_sl.Targets(fill, m.cfg.Scale1Pct, m.cfg.TargetPct)
	pos := ManagedPosition{
		TradeID:      m.newID(),
		Symbol:       sig.Symbol,
		Qty:          qty,
		AvgPrice:     fill,
		StopPrice:    stop,
		ScaleTarget:  scale,
		FinalTarget:  final,
		OpenedTs:     ts,
		LastUpdateTs: ts,
	}
	m.persist(ctx, "UpsertPosition", m.store.UpsertPosition(ctx, pos.Row()), sig.Symbol)
	m.persist(ctx, "OpenTrade", m.store.OpenTrade(ctx, model.TradeJournalEntry{
		TradeID:    pos.TradeID,
		Symbol:     pos.Symbol,
		OpenTs:     utils.ToISO(ts),
		EntryPrice: fill,
		Qty:        qty,
		ReasonOpen: strings.Join(head(sig.Reasons, maxOpenReasons), ";"),
		RunDate:    runDate,
	}), sig.Symbol)

	m.book.put(pos)
	m.stats.Entries++
	if m.observer != nil {
		m.observer.PositionOpened(pos.Symbol)
	}
	log.WithFields(logrus.Fields{"qty": qty, "fill": fill, "stop": stop}).Info("opened position")
	return pos.TradeID, true
}

// ManageOpenPositions applies, per held symbol with a feature row and in
// priority order: stop, scale-out, final target, trail.
func (m *Manager) ManageOpenPositions(ctx context.Context, snapshot model.Snapshot) {
	for _, symbol := range m.book.Symbols() {
		row, ok := snapshot[symbol]
		if !ok {
			continue
		}
		pos, _ := m.book.Get(symbol)
		price := row.Close
		trail := price
		if row.EMASlow != nil {
			trail = *row.EMASlow
		}

		switch {
		case price <= pos.StopPrice:
			m.Close(ctx, symbol, price, ReasonStop)
		case !pos.Scaled && price >= pos.ScaleTarget:
			m.scaleOut(ctx, pos, price, trail)
		case price >= pos.FinalTarget:
			m.Close(ctx, symbol, price, ReasonTarget)
		default:
			if stop, moved := tp_sl.ComputeTrailingStop(pos.StopPrice, trail); moved {
				pos.StopPrice = stop
				pos.LastUpdateTs = m.now().Unix()
				m.book.put(pos)
				m.persist(ctx, "UpsertPosition", m.store.UpsertPosition(ctx, pos.Row()), symbol)
				m.logger.WithFields(logrus.Fields{"symbol": symbol, "stop": stop}).Debug("trailed stop")
			}
		}
	}
}

func (m *Manager) scaleOut(ctx context.Context, pos ManagedPosition, price, trail float64) {
	sellQty, remaining := tp_sl.HalfQty(pos.Qty)
	res, ok := m.submit(ctx, pos.Symbol, SideSell, sellQty, price)
	ts := m.now().Unix()
	order := m.newOrder(pos.Symbol, model.OrderSideSell, sellQty, ts, res, map[string]interface{}{
		"reason":   "scale out",
		"trade_id": pos.TradeID,
	})
	if !ok {
		m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, nil), pos.Symbol)
		return
	}
	m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, newFill(order, ts, sellQty, res.AvgFillPrice)), pos.Symbol)

	pnl := tp_sl.RealizedPnL(res.AvgFillPrice, pos.AvgPrice, sellQty)
	m.persist(ctx, "ScaleOutTrade", m.store.ScaleOutTrade(ctx, pos.TradeID, pnl), pos.Symbol)
	m.stats.RealizedPnl += pnl
	pos.Qty = remaining
	pos.Scaled = true
	pos.StopPrice, _ = tp_sl.ComputeTrailingStop(pos.StopPrice, trail)
	pos.LastUpdateTs = ts
	m.book.put(pos)
	m.persist(ctx, "UpsertPosition", m.store.UpsertPosition(ctx, pos.Row()), pos.Symbol)
	if m.observer != nil {
		m.observer.PositionScaled(pos.Symbol)
	}
	m.logger.WithFields(logrus.Fields{"symbol": pos.Symbol, "qty": pos.Qty, "stop": pos.StopPrice}).Info("scaled position")
}

// Close sells the full remaining quantity. It returns false when nothing is
// held or the sell did not fill; the position then stays open.
func (m *Manager) Close(ctx context.Context, symbol string, price float64, reason string) bool {
	pos, ok := m.book.Get(symbol)
	if !ok {
		return false
	}
	res, filled := m.submit(ctx, symbol, SideSell, pos.Qty, price)
	ts := m.now().Unix()
	order := m.newOrder(symbol, model.OrderSideSell, pos.Qty, ts, res, map[string]interface{}{
		"reason":   reason,
		"trade_id": pos.TradeID,
	})
	if !filled {
		m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, nil), symbol)
		return false
	}

	exit := res.AvgFillPrice
	m.persist(ctx, "RecordOrder", m.store.RecordOrder(ctx, order, newFill(order, ts, pos.Qty, exit)), symbol)

	pnl := tp_sl.RealizedPnL(exit, pos.AvgPrice, pos.Qty)
	m.persist(ctx, "CloseTrade", m.store.CloseTrade(ctx, TradeClose{
		TradeID:   pos.TradeID,
		CloseTs:   utils.ToISO(ts),
		ExitPrice: exit,
		Qty:       pos.Qty,
		Pnl:       pnl,
		PnlPct:    tp_sl.PnLPct(exit, pos.AvgPrice),
		Reason:    reason,
	}), symbol)
	m.persist(ctx, "DeletePosition", m.store.DeletePosition(ctx, symbol), symbol)

	m.book.remove(symbol)
	m.stats.RealizedPnl += pnl
	if m.observer != nil {
		m.observer.PositionClosed(symbol, reason, pnl)
	}
	m.logger.WithFields(logrus.Fields{"symbol": symbol, "reason": reason, "exit": exit, "pnl": pnl}).Info("closed position")
	return true
}

// FlattenAll closes every held symbol that has a feature row and returns how
// many were closed.
func (m *Manager) FlattenAll(ctx context.Context, snapshot model.Snapshot) int {
	closed := 0
	for _, symbol := range m.book.Symbols() {
		row, ok := snapshot[symbol]
		if !ok || row.Close <= 0 {
			m.logger.WithField("symbol", symbol).Warn("no price for flatten, skipping")
			continue
		}
		if m.Close(ctx, symbol, row.Close, ReasonFlatten) {
			closed++
		}
	}
	return closed
}

// Stats returns the counters of the current run date.
func (m *Manager) Stats() (string, DayStats) {
	return m.day, m.stats
}

func (m *Manager) rollDay(ctx context.Context, runDate string) {
	if runDate == m.day {
		return
	}
	m.day = runDate
	m.stats = DayStats{}
	stats, err := m.store.DayStats(ctx, runDate)
	if err != nil {
		m.logger.WithError(err).WithField("day", runDate).Warn("failed to load day stats")
		return
	}
	m.stats = stats
}

func (m *Manager) entriesHalted() (bool, string) {
	if m.cfg.MaxTradesPerDay > 0 && m.stats.Entries >= m.cfg.MaxTradesPerDay {
		return true, "max trades per day reached"
	}
	if m.cfg.DailyDrawdownHaltPct > 0 && m.cfg.Equity > 0 {
		limit := m.cfg.Equity * m.cfg.DailyDrawdownHaltPct / 100
		if -m.stats.RealizedPnl >= limit {
			return true, "daily drawdown halt"
		}
	}
	return false, ""
}

func (m *Manager) submit(ctx context.Context, symbol string, side Side, qty, ref float64) (OrderResult, bool) {
	log := m.logger.WithFields(logrus.Fields{"symbol": symbol, "side": side, "qty": qty})
	res, err := m.gateway.SubmitOrder(ctx, symbol, side, qty, ref)
	if err != nil {
		log.WithError(err).Warn("order gateway failed, skipping")
		res = OrderResult{Status: StatusRejected}
	} else if !res.Filled() {
		log.WithField("status", res.Status).Info("order not filled, skipping")
	}
	if m.observer != nil {
		m.observer.OrderSubmitted(side, res.Status)
	}
	return res, err == nil && res.Filled()
}

func (m *Manager) newOrder(symbol, side string, qty float64, ts int64, res OrderResult, meta map[string]interface{}) model.Order {
	status := model.OrderStatusFilled
	if !res.Filled() {
		status = model.OrderStatusRejected
	}
	metaJSON, _ := json.Marshal(meta)
	iso := utils.ToISO(ts)
	return model.Order{
		ClientOrderID: m.newID(),
		Symbol:        symbol,
		Side:          side,
		OrderType:     model.OrderTypeMarket,
		Qty:           qty,
		TIF:           "DAY",
		Status:        status,
		PlacedTs:      iso,
		UpdatedTs:     iso,
		Meta:          string(metaJSON),
	}
}

func newFill(order model.Order, ts int64, qty, price float64) *model.Fill {
	return &model.Fill{ClientOrderID: order.ClientOrderID, Ts: utils.ToISO(ts), Qty: qty, Price: price}
}

// persist logs a store failure. In-memory state is never rolled back.
func (m *Manager) persist(ctx context.Context, method string, err error, symbol string) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		m.logger.WithField("symbol", symbol).Warn(method + " canceled")
		return
	}
	m.logger.WithError(err).WithFields(logrus.Fields{"symbol": symbol, "op": method}).Error("failed to persist trade state")
	if m.reporter != nil {
		m.reporter.Capture(ctx, "trade_manager", method, "error", err, map[string]interface{}{"symbol": symbol})
	}
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
