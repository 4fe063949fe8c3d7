package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// CycleRunRepository records one row per orchestrator cycle.
type CycleRunRepository struct {
	db *gorm.DB
}

func NewCycleRunRepository() *CycleRunRepository {
	return &CycleRunRepository{db: database.MainDB}
}

func NewCycleRunRepositoryWithDB(db *gorm.DB) *CycleRunRepository {
	return &CycleRunRepository{db: db}
}

// Start inserts run and fills in its ID.
func (r *CycleRunRepository) Start(ctx context.Context, run *model.CycleRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish writes the final counters of run.
func (r *CycleRunRepository) Finish(ctx context.Context, run *model.CycleRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *CycleRunRepository) Latest(ctx context.Context, limit int) ([]model.CycleRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.CycleRun
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// WatchlistRepository stores each loaded focus list.
type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository() *WatchlistRepository {
	return &WatchlistRepository{db: database.MainDB}
}

func NewWatchlistRepositoryWithDB(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// SaveRun writes run and its items atomically. Reloading the same run id
// replaces its items.
func (r *WatchlistRepository) SaveRun(ctx context.Context, run model.WatchlistRun, items []model.WatchlistItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&run).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", run.RunID).Delete(&model.WatchlistItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// LatestRun returns the newest run of runDate with its items, or (nil, nil, nil).
func (r *WatchlistRepository) LatestRun(ctx context.Context, runDate string) (*model.WatchlistRun, []model.WatchlistItem, error) {
	var runs []model.WatchlistRun
	err := r.db.WithContext(ctx).
		Where("run_date = ?", runDate).
		Order("loaded_ts DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, nil
	}

	var items []model.WatchlistItem
	err = r.db.WithContext(ctx).
		Where("run_id = ?", runs[0].RunID).
		Order("rank ASC").
		Find(&items).Error
	if err != nil {
		return nil, nil, err
	}
	return &runs[0], items, nil
}
