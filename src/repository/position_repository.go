package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// PositionRepository mirrors the live book into the positions table.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Upsert writes pos keyed on symbol.
func (r *PositionRepository) Upsert(ctx context.Context, pos model.Position) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"qty",
				"avg_price",
				"stop_price",
				"scale_target",
				"final_target",
				"scaled",
				"trade_id",
				"opened_ts",
				"last_update_ts",
			}),
		}).
		Create(&pos).Error
}

func (r *PositionRepository) Delete(ctx context.Context, symbol string) error {
	return r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&model.Position{}).Error
}

// List returns every open position ordered by symbol.
func (r *PositionRepository) List(ctx context.Context) ([]model.Position, error) {
	var rows []model.Position
	err := r.db.WithContext(ctx).
		Order("symbol ASC").
		Find(&rows).Error
	return rows, err
}
