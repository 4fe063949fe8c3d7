package orchestrator

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"intradaybot/src/database"
	"intradaybot/src/metrics"
	"intradaybot/src/settings"
)

// Boot loads settings, opens the main database and returns an orchestrator
// whose book has been restored from the persisted positions.
func Boot(ctx context.Context, reg *metrics.Registry) (*Orchestrator, settings.AppSettings, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, s, fmt.Errorf("invalid settings: %w", err)
	}
	if err := database.InitMainDB(); err != nil {
		return nil, s, fmt.Errorf("init database: %w", err)
	}

	log := logger.WithField("run_mode", s.RunMode)
	o, err := NewFromSettings(s, database.MainDB, reg, log)
	if err != nil {
		return nil, s, err
	}
	if err := o.Restore(ctx); err != nil {
		o.Close()
		return nil, s, fmt.Errorf("restore book: %w", err)
	}
	return o, s, nil
}
