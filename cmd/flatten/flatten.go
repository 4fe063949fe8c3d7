package flatten

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"intradaybot/src/orchestrator"
)

type Flatten struct{}

// Start closes every restored position at the latest 5m close, regardless of
// the clock.
func (f *Flatten) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, _, err := orchestrator.Boot(ctx, nil)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start flatten")
		return err
	}
	defer o.Close()

	closed, err := o.Flatten(ctx)
	if err != nil {
		logrus.WithError(err).Error("flatten failed")
		return err
	}
	logrus.WithFields(logrus.Fields{"closed": closed, "remaining": o.Book().Len()}).Info("flatten done")
	return nil
}
