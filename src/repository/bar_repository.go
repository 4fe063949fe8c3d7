package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// BarRepository stores intraday bars and feature snapshots.
type BarRepository struct {
	db *gorm.DB
}

func NewBarRepository() *BarRepository {
	return &BarRepository{db: database.MainDB}
}

func NewBarRepositoryWithDB(db *gorm.DB) *BarRepository {
	return &BarRepository{db: db}
}

// UpsertBars replaces bars on (symbol, timeframe, ts).
func (r *BarRepository) UpsertBars(ctx context.Context, bars []model.Bar, source, runDate string) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]model.IntradayBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, model.NewIntradayBarFromBar(b, source, runDate))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "ts"}},
			UpdateAll: true,
		}).
		CreateInBatches(&rows, 200).Error
}

// RecentBars returns up to limit bars ending at the newest, oldest first.
func (r *BarRepository) RecentBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.IntradayBar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("ts DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]model.Bar, 0, len(rows))
	// reverse to ascending chronological order
	for i := len(rows) - 1; i >= 0; i-- {
		b, err := rows[i].ToBar()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// UpsertFeatures stores the snapshot rows for timeframe keyed on their bar time.
func (r *BarRepository) UpsertFeatures(ctx context.Context, snapshot model.Snapshot, timeframe string) error {
	if len(snapshot) == 0 {
		return nil
	}
	rows := make([]model.FeatureRecord, 0, len(snapshot))
	for _, sym := range snapshot.Symbols() {
		row := snapshot[sym]
		payload, err := row.FeaturesJSON()
		if err != nil {
			return err
		}
		rows = append(rows, model.FeatureRecord{
			Symbol:       sym,
			Ts:           isoTs(row.Ts),
			Timeframe:    timeframe,
			FeaturesJSON: payload,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "ts"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{"features_json"}),
		}).
		Create(&rows).Error
}

func (r *BarRepository) Features(ctx context.Context, symbol, timeframe string) ([]model.FeatureRecord, error) {
	var rows []model.FeatureRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("ts ASC").
		Find(&rows).Error
	return rows, err
}
