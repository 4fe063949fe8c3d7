package trade

import (
	"sort"
	"sync"

	"intradaybot/src/model"
	"intradaybot/src/utils"
)

// ManagedPosition is the authoritative state of one open long.
type ManagedPosition struct {
	TradeID      string  `json:"trade_id"`
	Symbol       string  `json:"symbol"`
	Qty          float64 `json:"qty"`
	AvgPrice     float64 `json:"avg_price"`
	StopPrice    float64 `json:"stop_price"`
	ScaleTarget  float64 `json:"scale_target"`
	FinalTarget  float64 `json:"final_target"`
	Scaled       bool    `json:"scaled"`
	OpenedTs     int64   `json:"opened_ts"`
	LastUpdateTs int64   `json:"last_update_ts"`
}

// Row converts the position into its persisted mirror.
func (p ManagedPosition) Row() model.Position {
	return model.Position{
		Symbol:       p.Symbol,
		Qty:          p.Qty,
		AvgPrice:     p.AvgPrice,
		StopPrice:    p.StopPrice,
		ScaleTarget:  p.ScaleTarget,
		FinalTarget:  p.FinalTarget,
		Scaled:       p.Scaled,
		TradeID:      p.TradeID,
		OpenedTs:     utils.ToISO(p.OpenedTs),
		LastUpdateTs: utils.ToISO(p.LastUpdateTs),
	}
}

// FromRow rebuilds a position from its persisted mirror.
func FromRow(r model.Position) (ManagedPosition, error) {
	opened, err := utils.FromISO(r.OpenedTs)
	if err != nil {
		return ManagedPosition{}, err
	}
	updated, err := utils.FromISO(r.LastUpdateTs)
	if err != nil {
		updated = opened
	}
	return ManagedPosition{
		TradeID:      r.TradeID,
		Symbol:       r.Symbol,
		Qty:          r.Qty,
		AvgPrice:     r.AvgPrice,
		StopPrice:    r.StopPrice,
		ScaleTarget:  r.ScaleTarget,
		FinalTarget:  r.FinalTarget,
		Scaled:       r.Scaled,
		OpenedTs:     opened,
		LastUpdateTs: updated,
	}, nil
}

// Book is the live position map keyed by symbol. Only the Manager writes to
// it; readers get copies.
type Book struct {
	mu        sync.RWMutex
	positions map[string]ManagedPosition
}

func NewBook() *Book {
	return &Book{positions: make(map[string]ManagedPosition)}
}

func (b *Book) Get(symbol string) (ManagedPosition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.positions[symbol]
	return p, ok
}

func (b *Book) Has(symbol string) bool {
	_, ok := b.Get(symbol)
	return ok
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// Symbols returns the held symbols in ascending order.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.positions))
	for s := range b.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of every position sorted by symbol.
func (b *Book) Snapshot() []ManagedPosition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ManagedPosition, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (b *Book) put(p ManagedPosition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[p.Symbol] = p
}

func (b *Book) remove(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.positions, symbol)
}
