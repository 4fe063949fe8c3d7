// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intradaybot/src/model"
	"intradaybot/src/trade"
)

// Registry holds every collector on its own prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	CycleDuration *prometheus.HistogramVec
	Cycles        *prometheus.CounterVec
	Signals       *prometheus.CounterVec
	NewsErrors    prometheus.Counter

	Orders          *prometheus.CounterVec
	PositionsOpened prometheus.Counter
	PositionsScaled prometheus.Counter
	PositionsClosed *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	RealizedPnL     prometheus.Gauge
}

var _ trade.Observer = (*Registry)(nil)

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intradaybot_cycle_duration_seconds",
				Help:    "Duration of one orchestrator cycle in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"timeframe", "status"},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intradaybot_cycles_total",
				Help: "Cycles run by timeframe and status",
			},
			[]string{"timeframe", "status"},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intradaybot_signals_total",
				Help: "Ranked signals by decision",
			},
			[]string{"decision"},
		),
		NewsErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "intradaybot_news_errors_total",
				Help: "News feed failures that degraded a cycle",
			},
		),

		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intradaybot_orders_total",
				Help: "Orders submitted by side and gateway status",
			},
			[]string{"side", "status"},
		),
		PositionsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "intradaybot_positions_opened_total",
				Help: "Positions opened",
			},
		),
		PositionsScaled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "intradaybot_positions_scaled_total",
				Help: "Positions that took the first scale-out",
			},
		),
		PositionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intradaybot_positions_closed_total",
				Help: "Positions closed by reason",
			},
			[]string{"reason"},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "intradaybot_open_positions",
				Help: "Positions currently held",
			},
		),
		RealizedPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "intradaybot_realized_pnl",
				Help: "Realized pnl of closed trades since start",
			},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CycleDuration,
		r.Cycles,
		r.Signals,
		r.NewsErrors,
		r.Orders,
		r.PositionsOpened,
		r.PositionsScaled,
		r.PositionsClosed,
		r.OpenPositions,
		r.RealizedPnL,
	)
	return r
}

// Handler serves the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// CycleTimer measures one cycle.
type CycleTimer struct {
	r         *Registry
	timeframe string
	start     time.Time
}

func (r *Registry) StartCycle(timeframe string) *CycleTimer {
	return &CycleTimer{r: r, timeframe: timeframe, start: time.Now()}
}

// Stop records the cycle with its final status.
func (t *CycleTimer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	t.r.CycleDuration.WithLabelValues(t.timeframe, status).Observe(d.Seconds())
	t.r.Cycles.WithLabelValues(t.timeframe, status).Inc()
	return d
}

func (r *Registry) RecordSignals(signals []model.RankedSignal) {
	for _, s := range signals {
		r.Signals.WithLabelValues(string(s.Decision)).Inc()
	}
}

func (r *Registry) RecordNewsError() { r.NewsErrors.Inc() }

func (r *Registry) OrderSubmitted(side trade.Side, status trade.OrderStatus) {
	r.Orders.WithLabelValues(string(side), string(status)).Inc()
}

func (r *Registry) PositionOpened(string) {
	r.PositionsOpened.Inc()
	r.OpenPositions.Inc()
}

func (r *Registry) PositionScaled(string) { r.PositionsScaled.Inc() }

func (r *Registry) PositionClosed(_, reason string, pnl float64) {
	r.PositionsClosed.WithLabelValues(reason).Inc()
	r.OpenPositions.Dec()
	r.RealizedPnL.Add(pnl)
}
