package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intradaybot/src/database"
	"intradaybot/src/model"
	"intradaybot/src/utils"
)

func isoTs(epoch int64) string {
	return utils.ToISO(epoch)
}

// CatalystRepository stores merged news items, fresh or not, for audit.
type CatalystRepository struct {
	db *gorm.DB
}

func NewCatalystRepository() *CatalystRepository {
	return &CatalystRepository{db: database.MainDB}
}

func NewCatalystRepositoryWithDB(db *gorm.DB) *CatalystRepository {
	return &CatalystRepository{db: db}
}

// Upsert replaces items on (symbol, ts, dedupe_key).
func (r *CatalystRepository) Upsert(ctx context.Context, items []model.NewsItem, runDate string) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]model.Catalyst, 0, len(items))
	for _, item := range items {
		rows = append(rows, model.NewCatalystFromNewsItem(item, runDate))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "ts"}, {Name: "dedupe_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"headline",
				"source",
				"url",
				"sentiment_score",
				"fresh",
				"run_date",
			}),
		}).
		Create(&rows).Error
}

// Recent returns the newest catalysts of symbol first.
func (r *CatalystRepository) Recent(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.Catalyst
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("ts DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.NewsItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.ToNewsItem()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ProvenanceRepository appends AI provenance rows.
type ProvenanceRepository struct {
	db *gorm.DB
}

func NewProvenanceRepository() *ProvenanceRepository {
	return &ProvenanceRepository{db: database.MainDB}
}

func NewProvenanceRepositoryWithDB(db *gorm.DB) *ProvenanceRepository {
	return &ProvenanceRepository{db: db}
}

func (r *ProvenanceRepository) SaveProvenance(ctx context.Context, rows []model.AIProvenance) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *ProvenanceRepository) ListBySymbol(ctx context.Context, symbol string) ([]model.AIProvenance, error) {
	var rows []model.AIProvenance
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
