package cycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/orchestrator"
)

type Cycle struct {
	Timeframe string
}

// Start runs a single cycle and logs the top of the ranking.
func (c *Cycle) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeframe := c.Timeframe
	if timeframe == "" {
		timeframe = model.Timeframe5m
	}
	if timeframe != model.Timeframe5m && timeframe != model.Timeframe15m {
		return fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	o, _, err := orchestrator.Boot(ctx, nil)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start cycle")
		return err
	}
	defer o.Close()

	res, err := o.RunCycle(ctx, timeframe)
	if err != nil {
		logrus.WithError(err).Error("cycle failed")
		return err
	}
	for i, sig := range res.Top {
		if i == 5 {
			break
		}
		logrus.WithFields(logrus.Fields{
			"rank":     i + 1,
			"symbol":   sig.Symbol,
			"score":    sig.Score,
			"decision": sig.Decision,
			"gate":     sig.Gate,
		}).Info("top signal")
	}
	logrus.WithFields(logrus.Fields{
		"cycle_id": res.CycleID,
		"entries":  len(res.Opened),
		"open":     o.Book().Len(),
	}).Info("cycle done")
	return nil
}
