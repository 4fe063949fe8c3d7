// Package migrations holds the data migrations that AutoMigrate cannot express:
// reporting views and composite indexes.
package migrations

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one applied migration id.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Migration is a named, run-once step. IDs are stable and sort in order.
type Migration struct {
	ID string
	Up func(*gorm.DB) error
}

// All lists every migration in application order. Append only.
func All() []Migration {
	return []Migration{
		{ID: "00001_create_latest_bars_view", Up: createLatestBarsView},
		{ID: "00002_create_focus_symbols_view", Up: createFocusSymbolsView},
		{ID: "00003_index_trades_symbol_time", Up: indexTradesSymbolTime},
	}
}

// RunOnce applies fn inside a transaction unless migrationID is already
// recorded. It reports whether fn ran. The id is recorded only when fn succeeds.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) (bool, error) {
	if db == nil {
		return false, nil
	}
	if migrationID == "" {
		return false, errors.New("migration id is empty")
	}
	if fn == nil {
		return false, fmt.Errorf("migration %q has nil fn", migrationID)
	}
	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return false, fmt.Errorf("ensure data migrations table: %w", err)
	}

	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing DataMigration
		err := tx.Where("id = ?", migrationID).Take(&existing).Error
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// Run applies every pending migration from All.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, m := range All() {
		applied, err := RunOnce(db, m.ID, m.Up)
		if err != nil {
			return err
		}
		if applied {
			logger.WithField("migration", m.ID).Info("[database] data migration applied")
		}
	}
	return nil
}
