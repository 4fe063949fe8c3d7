package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"intradaybot/src/database"
	"intradaybot/src/model"
	"intradaybot/src/utils"
)

// SignalRepository persists ranked signals. A symbol scored twice on the
// same bar overwrites its earlier row.
type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository() *SignalRepository {
	return &SignalRepository{db: database.MainDB}
}

func NewSignalRepositoryWithDB(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Save upserts rows on (symbol, ts, timeframe).
func (r *SignalRepository) Save(ctx context.Context, rows []model.SignalRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "ts"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"base_score",
				"ai_adjustment",
				"context_bias",
				"final_score",
				"decision",
				"gate",
				"reason_tags",
				"details_json",
				"phase1_rank",
				"run_date",
			}),
		}).
		Create(&rows).Error
}

// Latest returns the newest rows first.
func (r *SignalRepository) Latest(ctx context.Context, limit int) ([]model.SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.SignalRecord
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *SignalRepository) ListByRunDate(ctx context.Context, runDate string) ([]model.SignalRecord, error) {
	var rows []model.SignalRecord
	err := r.db.WithContext(ctx).
		Where("run_date = ?", runDate).
		Order("ts ASC, final_score DESC").
		Find(&rows).Error
	return rows, err
}

// SignalAudit binds one cycle's bar times and watchlist ranks to the
// repository so the scoring engine can hand it every signal it produced.
type SignalAudit struct {
	repo      *SignalRepository
	timeframe string
	runDate   string
	barTs     map[string]int64
	ranks     map[string]int
	now       func() time.Time
}

// Audit returns the cycle-scoped sink for one snapshot.
func (r *SignalRepository) Audit(timeframe, runDate string, snapshot model.Snapshot, ranks map[string]int) *SignalAudit {
	barTs := make(map[string]int64, len(snapshot))
	for sym, row := range snapshot {
		barTs[sym] = row.Ts
	}
	return &SignalAudit{
		repo:      r,
		timeframe: timeframe,
		runDate:   runDate,
		barTs:     barTs,
		ranks:     ranks,
		now:       time.Now,
	}
}

func (a *SignalAudit) RecordSignals(ctx context.Context, signals []model.RankedSignal) error {
	rows := make([]model.SignalRecord, 0, len(signals))
	for _, s := range signals {
		ts, ok := a.barTs[s.Symbol]
		if !ok {
			ts = a.now().Unix()
		}
		var rank *int
		if v, ok := a.ranks[s.Symbol]; ok {
			v := v
			rank = &v
		}
		rows = append(rows, model.NewSignalRecord(s, utils.ToISO(ts), a.timeframe, a.runDate, rank))
	}
	if err := a.repo.Save(ctx, rows); err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "SignalRepository",
			"op":        "RecordSignals",
			"timeframe": a.timeframe,
			"count":     len(rows),
		}).WithError(err).Error("Failed to record signals")
		return err
	}
	return nil
}
