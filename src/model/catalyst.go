package model

import (
	"strings"

	"intradaybot/src/utils"
)

// NewsItem is one headline attached to a symbol.
type NewsItem struct {
	Symbol         string   `json:"symbol"`
	Ts             int64    `json:"ts"`
	Title          string   `json:"title"`
	Source         string   `json:"source"`
	URL            string   `json:"url"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Fresh          bool     `json:"fresh"`
}

// DedupeKey identifies the same story across sources and cycles.
func (n NewsItem) DedupeKey() string {
	key := n.Title
	if key == "" {
		key = n.URL
	}
	return strings.ToUpper(n.Symbol) + "|" + key
}

// Catalyst is the persisted form of a NewsItem.
type Catalyst struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	Symbol         string   `gorm:"size:20;not null;uniqueIndex:ux_catalysts_symbol_ts_key,priority:1" json:"symbol"`
	Ts             string   `gorm:"size:32;not null;uniqueIndex:ux_catalysts_symbol_ts_key,priority:2" json:"ts"`
	DedupeKey      string   `gorm:"size:255;not null;uniqueIndex:ux_catalysts_symbol_ts_key,priority:3" json:"dedupe_key"`
	Headline       string   `gorm:"type:text" json:"headline"`
	Source         string   `gorm:"size:50" json:"source"`
	URL            string   `gorm:"type:text" json:"url"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Fresh          bool     `gorm:"not null;default:false" json:"fresh"`
	RunDate        string   `gorm:"size:10" json:"run_date"`
}

func (Catalyst) TableName() string {
	return "catalysts"
}

// NewCatalystFromNewsItem builds a storage row for item.
func NewCatalystFromNewsItem(item NewsItem, runDate string) Catalyst {
	return Catalyst{
		Symbol:         item.Symbol,
		Ts:             utils.ToISO(item.Ts),
		DedupeKey:      item.DedupeKey(),
		Headline:       item.Title,
		Source:         item.Source,
		URL:            item.URL,
		SentimentScore: item.SentimentScore,
		Fresh:          item.Fresh,
		RunDate:        runDate,
	}
}

// ToNewsItem converts the row back into a NewsItem.
func (c Catalyst) ToNewsItem() (NewsItem, error) {
	ts, err := utils.FromISO(c.Ts)
	if err != nil {
		return NewsItem{}, err
	}
	return NewsItem{
		Symbol:         c.Symbol,
		Ts:             ts,
		Title:          c.Headline,
		Source:         c.Source,
		URL:            c.URL,
		SentimentScore: c.SentimentScore,
		Fresh:          c.Fresh,
	}, nil
}
