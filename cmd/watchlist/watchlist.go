package watchlist

import (
	"context"

	"github.com/sirupsen/logrus"

	"intradaybot/src/database"
	"intradaybot/src/repository"
	"intradaybot/src/settings"
	wl "intradaybot/src/watchlist"
)

type Watchlist struct {
	Path string
}

// Start imports a watchlist file and records the run.
func (w *Watchlist) Start() error {
	s, err := settings.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid settings")
		return err
	}
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
		return err
	}

	loader := wl.NewLoader(s.WatchlistConfig(), repository.NewWatchlistRepository(), nil)
	focus, err := loader.Load(context.Background(), w.Path)
	if err != nil {
		logrus.WithError(err).Error("watchlist import failed")
		return err
	}
	for _, symbol := range focus.Symbols {
		logrus.WithFields(logrus.Fields{"rank": focus.Ranks[symbol], "symbol": symbol}).Info("watchlist entry")
	}
	logrus.WithFields(logrus.Fields{"run_id": focus.RunID, "symbols": len(focus.Symbols)}).Info("watchlist imported")
	return nil
}
