package connectors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"intradaybot/src/model"
)

// NewsFeed returns raw headlines for symbols. Items may carry any case in
// Symbol; MergeCatalysts normalizes them. A feed may return partial items
// together with an error.
type NewsFeed interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) ([]model.NewsItem, error)
}

// SimHeadlineFeed emits one synthetic Yahoo-style headline per symbol,
// each 11 minutes older than the previous one.
type SimHeadlineFeed struct {
	now func() time.Time
}

func NewSimHeadlineFeed() *SimHeadlineFeed {
	return &SimHeadlineFeed{now: time.Now}
}

func (f *SimHeadlineFeed) Name() string { return "yahoo" }

func (f *SimHeadlineFeed) Fetch(ctx context.Context, symbols []string) ([]model.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := f.now()
	items := make([]model.NewsItem, 0, len(symbols))
	for idx, symbol := range symbols {
		items = append(items, model.NewsItem{
			Symbol: symbol,
			Ts:     base.Add(-time.Duration(idx) * 11 * time.Minute).Unix(),
			Title:  fmt.Sprintf("Yahoo headline for %s", symbol),
			URL:    fmt.Sprintf("https://news.example.com/%s/yahoo", strings.ToLower(symbol)),
			Source: "yahoo",
		})
	}
	return items, nil
}

// MergeCatalysts dedupes items from every source on (symbol, headline or url),
// keeping the newest, and marks items newer than freshHours before now as
// fresh. Items without a symbol are dropped. The result is ordered by symbol
// then newest first.
func MergeCatalysts(freshHours int, now time.Time, sources ...[]model.NewsItem) []model.NewsItem {
	type key struct{ symbol, story string }

	combined := make(map[key]model.NewsItem)
	for _, items := range sources {
		for _, item := range items {
			symbol := strings.ToUpper(strings.TrimSpace(item.Symbol))
			if symbol == "" {
				continue
			}
			item.Symbol = symbol
			if item.Source == "" {
				item.Source = "unknown"
			}
			story := item.Title
			if story == "" {
				story = item.URL
			}
			k := key{symbol: symbol, story: story}
			if cur, ok := combined[k]; !ok || item.Ts > cur.Ts {
				combined[k] = item
			}
		}
	}

	threshold := now.Add(-time.Duration(freshHours) * time.Hour).Unix()
	out := make([]model.NewsItem, 0, len(combined))
	for _, item := range combined {
		item.Fresh = item.Ts >= threshold
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		if out[i].Ts != out[j].Ts {
			return out[i].Ts > out[j].Ts
		}
		return out[i].Title < out[j].Title
	})
	return out
}
