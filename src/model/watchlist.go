package model

// WatchlistRun records one load of the daily focus list.
type WatchlistRun struct {
	RunID      string `gorm:"primaryKey;size:64" json:"run_id"`
	RunDate    string `gorm:"size:10;not null;index" json:"run_date"`
	SourcePath string `gorm:"type:text" json:"source_path"`
	Symbols    int    `json:"symbols"`
	LoadedTs   string `gorm:"size:32" json:"loaded_ts"`
}

func (WatchlistRun) TableName() string {
	return "watchlist_runs"
}

// WatchlistItem is one symbol of a WatchlistRun with its raw context.
type WatchlistItem struct {
	RunID       string `gorm:"primaryKey;size:64" json:"run_id"`
	Symbol      string `gorm:"primaryKey;size:20" json:"symbol"`
	Rank        int    `json:"rank"`
	ContextJSON string `gorm:"type:text;column:context_json" json:"context_json"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}
